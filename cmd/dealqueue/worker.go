package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dealqueue/core/health"
	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/internal/jobs"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the job processors and serve /metrics and /health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := jobs.Register(ctx, a.manager, a.deps); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
			mux.HandleFunc("/health/live", health.Liveness)
			mux.Handle("/health/ready", health.Readiness(a.logger, 5*time.Second, a.checks...))

			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(a.manager.Run(ctx))
			g.Go(func() error {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			a.logger.Info("worker started",
				logger.Mode(string(a.manager.Mode())),
				logger.Key("addr", a.cfg.HTTPAddr))

			err = g.Wait()
			a.logger.Info("worker stopped")
			return err
		},
	}
}
