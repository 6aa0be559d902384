package jobs

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/dealqueue/core/email"
	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/core/records"
	"github.com/dmitrymomot/dealqueue/core/storage"
)

// Deps are the collaborators of the processors.
type Deps struct {
	Store    records.Store
	Storage  storage.Storage
	Email    email.EmailSender
	Push     PushSender
	Analyzer Analyzer // optional; analysis jobs fall back to their simulated cost
	Logger   *slog.Logger
	Config   Config
}

// Register binds the notification, report and document processors to their queues.
func Register(ctx context.Context, m *queue.Manager, deps Deps) error {
	if deps.Store == nil {
		return ErrStoreNil
	}
	if deps.Storage == nil {
		return ErrStorageNil
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	cfg := deps.Config

	notifications := NewNotificationProcessor(deps.Store, deps.Email, deps.Push, log)
	reports := NewReportProcessor(deps.Store, deps.Storage,
		WithReportTimeout(cfg.ReportTimeout),
		WithReportStageDelay(cfg.ReportStageDelay),
		WithReportLogger(log))
	documents := NewDocumentProcessor(deps.Store, map[DocumentType]time.Duration{
		DocumentOCR:        cfg.OCRCost,
		DocumentAnalysis:   cfg.AnalysisCost,
		DocumentConversion: cfg.ConversionCost,
	}, log, WithAnalyzer(deps.Analyzer))

	return errors.Join(
		m.RegisterProcessor(ctx, queue.QueueNotifications, concurrency(cfg.NotificationConcurrency, 5), notifications.Handler()),
		m.RegisterProcessor(ctx, queue.QueueReportGeneration, concurrency(cfg.ReportConcurrency, 1), reports.Handler()),
		m.RegisterProcessor(ctx, queue.QueueDocumentProcessing, concurrency(cfg.DocumentConcurrency, 2), documents.Handler()),
	)
}

// Per-family job options. Caller options are applied after them.
var (
	notificationOptions = []queue.JobOption{
		queue.WithAttempts(3),
		queue.WithBackoff(queue.BackoffExponential, time.Second),
	}
	reportOptions = []queue.JobOption{
		queue.WithAttempts(2),
		queue.WithBackoff(queue.BackoffExponential, 5*time.Second),
	}
	documentOptions = []queue.JobOption{
		queue.WithAttempts(3),
		queue.WithBackoff(queue.BackoffExponential, 2*time.Second),
	}
)

// EnqueueNotification adds a notification job.
func EnqueueNotification(ctx context.Context, m *queue.Manager, p NotificationPayload, opts ...queue.JobOption) (*queue.Job, error) {
	return m.AddJob(ctx, queue.QueueNotifications, p, slices.Concat(notificationOptions, opts)...)
}

// EnqueueReport adds a report generation job.
func EnqueueReport(ctx context.Context, m *queue.Manager, p ReportPayload, opts ...queue.JobOption) (*queue.Job, error) {
	return m.AddJob(ctx, queue.QueueReportGeneration, p, slices.Concat(reportOptions, opts)...)
}

// EnqueueDocument adds a document processing job.
func EnqueueDocument(ctx context.Context, m *queue.Manager, p DocumentPayload, opts ...queue.JobOption) (*queue.Job, error) {
	return m.AddJob(ctx, queue.QueueDocumentProcessing, p, slices.Concat(documentOptions, opts)...)
}

func concurrency(n, fallback int) int {
	if n < 1 {
		return fallback
	}
	return n
}
