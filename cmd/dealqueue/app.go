package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/dealqueue/core/config"
	"github.com/dmitrymomot/dealqueue/core/email"
	"github.com/dmitrymomot/dealqueue/core/health"
	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/core/records"
	"github.com/dmitrymomot/dealqueue/core/storage"
	"github.com/dmitrymomot/dealqueue/integration/ai/analyzer"
	"github.com/dmitrymomot/dealqueue/integration/database/pg"
	"github.com/dmitrymomot/dealqueue/integration/database/redis"
	"github.com/dmitrymomot/dealqueue/integration/email/postmark"
	"github.com/dmitrymomot/dealqueue/integration/storage/s3"
	"github.com/dmitrymomot/dealqueue/internal/jobs"
)

type appConfig struct {
	Name            string        `env:"APP_NAME" envDefault:"dealqueue"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	DevEmailDir     string        `env:"DEV_EMAIL_DIR" envDefault:"./tmp/emails"`
	ArtifactBaseURL string        `env:"ARTIFACT_BASE_URL" envDefault:"http://localhost:8080/artifacts"`
}

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      appConfig
	logger   *slog.Logger
	registry *prometheus.Registry
	manager  *queue.Manager
	deps     jobs.Deps
	checks   []health.Check
	closers  []func()
}

func newApp(ctx context.Context) (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	var (
		queueCfg    queue.Config
		redisCfg    redis.Config
		pgCfg       pg.Config
		s3Cfg       s3.Config
		postmarkCfg postmark.Config
		analyzerCfg analyzer.Config
		jobsCfg     jobs.Config
	)
	if err := errors.Join(
		config.Load(&queueCfg),
		config.Load(&redisCfg),
		config.Load(&pgCfg),
		config.Load(&s3Cfg),
		config.Load(&postmarkCfg),
		config.Load(&analyzerCfg),
		config.Load(&jobsCfg),
	); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := queue.NewMetrics(a.registry)
	if err != nil {
		return nil, fmt.Errorf("register queue metrics: %w", err)
	}

	a.manager, err = queue.NewManagerFromConfig(queueCfg, redis.Connector(redisCfg),
		queue.WithLogger(log.With(logger.Component("queue"))),
		queue.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := a.manager.Shutdown(shutdownCtx); err != nil {
			log.Error("queue shutdown failed", logger.Error(err))
		}
	})
	a.checks = append(a.checks, health.Check{Name: "queue", Fn: a.manager.Healthcheck})

	store, err := a.recordStore(ctx, pgCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	artifacts, err := a.artifactStorage(ctx, s3Cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	sender, err := a.emailSender(postmarkCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.deps = jobs.Deps{
		Store:   store,
		Storage: artifacts,
		Email:   sender,
		Push:    jobs.NewLogPushSender(log),
		Logger:  log.With(logger.Component("jobs")),
		Config:  jobsCfg,
	}
	if analyzerCfg.Enabled() {
		client, err := analyzer.New(ctx, analyzerCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.deps.Analyzer = client
		log.Info("document analysis uses a language model",
			slog.String("provider", analyzerCfg.Provider))
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) recordStore(ctx context.Context, cfg pg.Config) (records.Store, error) {
	if !cfg.Enabled() {
		a.logger.Warn("PG_CONN_URL is not set, records are kept in memory")
		return records.NewMemoryStore(), nil
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	if err := pg.Migrate(ctx, pool, cfg, a.logger); err != nil {
		return nil, err
	}
	a.checks = append(a.checks, health.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
	return pg.NewRecordStore(pool), nil
}

func (a *app) artifactStorage(ctx context.Context, cfg s3.Config) (storage.Storage, error) {
	if !cfg.Enabled() {
		a.logger.Warn("S3_BUCKET is not set, report artifacts are kept in memory")
		return storage.NewMemoryStorage(a.cfg.ArtifactBaseURL), nil
	}
	s, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) emailSender(cfg postmark.Config) (email.EmailSender, error) {
	if !cfg.Enabled() {
		a.logger.Info("postmark is not configured, emails are written to disk",
			slog.String("dir", a.cfg.DevEmailDir))
		return email.NewDevSender(a.cfg.DevEmailDir), nil
	}
	client, err := postmark.New(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newLogger(cfg appConfig) (*slog.Logger, error) {
	var opts []logger.Option
	switch cfg.Env {
	case "production":
		opts = append(opts, logger.WithProduction(cfg.Name))
	case "staging":
		opts = append(opts, logger.WithStaging(cfg.Name))
	default:
		opts = append(opts, logger.WithDevelopment(cfg.Name))
	}

	if cfg.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		opts = append(opts, logger.WithLevel(level))
	}

	log := logger.New(opts...)
	logger.SetAsDefault(log)
	return log, nil
}
