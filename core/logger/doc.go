// Package logger provides structured logging utilities built on Go's standard slog package.
// It offers environment-specific configurations, context-aware attribute extraction,
// and a set of pre-built attributes for queue and job logging.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/dealqueue/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("dealqueue"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(logger.WithProduction("dealqueue"))
//
//	// Custom configuration
//	log := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("service", "worker")),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Attribute Helpers
//
// Helpers return an empty attribute for nil or empty values, so they can be
// passed without checks:
//
//	log.Error("job failed",
//		logger.Queue("report-generation"),
//		logger.JobID(job.ID),
//		logger.Attempt(job.AttemptsMade(), job.Options.Attempts),
//		logger.Error(err),
//	)
//
// # Context Values
//
// Attributes can be pulled from the context of every *Context call:
//
//	log := logger.New(
//		logger.WithProduction("dealqueue"),
//		logger.WithContextValue("trace_id", traceKey{}),
//	)
//	log.InfoContext(ctx, "processing")
package logger
