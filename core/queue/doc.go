// Package queue provides a resilient background job queue. Jobs are pushed to a
// distributed broker while it is reachable and executed in-process when it is not,
// so producers keep working through broker outages.
//
// # Features
//
//   - Named queues resolved through a single Manager
//   - Distributed backend over any Broker (Redis in production, MemoryBroker in tests)
//   - Local fallback backend with deferred in-process execution
//   - Circuit breaker that trips after consecutive connection failures and probes for recovery
//   - Per-job attempts with fixed or exponential backoff
//   - Per-execution timeouts and panic recovery
//   - Type-safe handlers with payload validation
//   - Prometheus metrics and a readiness healthcheck
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/dealqueue/core/queue"
//
//	broker := queue.NewMemoryBroker()
//	manager, err := queue.NewManager(queue.MemoryConnector(broker),
//		queue.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer manager.Shutdown(context.Background())
//
//	type EmailPayload struct {
//		To      string `json:"to" validate:"required,email"`
//		Subject string `json:"subject" validate:"required"`
//	}
//
//	err = manager.RegisterProcessor(ctx, queue.QueueEmail, 5,
//		queue.Typed(func(ctx context.Context, job *queue.Job, p EmailPayload) error {
//			job.ReportProgress(50)
//			return send(ctx, p.To, p.Subject)
//		}),
//	)
//
//	job, err := manager.AddJob(ctx, queue.QueueEmail, EmailPayload{
//		To:      "user@example.com",
//		Subject: "Welcome!",
//	}, queue.WithAttempts(5), queue.WithBackoff(queue.BackoffExponential, time.Second))
//
// # Retries and Backoff
//
// A job runs at most Attempts times. The delay before attempt n (n >= 2) is the
// base delay for fixed backoff and base * 2^(n-2) for exponential backoff.
// Errors wrapped with Permanent fail the job immediately:
//
//	if err := validate(p); err != nil {
//		return queue.Permanent(err)
//	}
//
// # Fallback Mode
//
// Every connection-class failure (connect, push, reserve) increments the
// breaker's failure counter. After three consecutive failures the manager moves
// every open queue to a local backend bound to the same processors and keeps
// accepting jobs. Local mode has known limits:
//
//   - jobs are not persisted and are lost on process exit
//   - failed jobs are not retried
//   - ListJobs returns an empty slice and GetJob returns ErrJobNotFound
//   - processors registered for the same queue accumulate instead of replacing each other
//
// While in local mode the manager probes the broker every ProbeInterval. After a
// successful probe, queues created from then on use the broker again; queues
// already bound to a local backend stay local.
//
// # Health Checks
//
//	healthSrv.AddCheck("queue", manager.Healthcheck)
//
// Healthcheck returns an error wrapping ErrFallbackMode while the breaker is open.
//
// # Graceful Shutdown
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(manager.Run(ctx))
//
// Shutdown stops the supervision loop, waits for running distributed jobs up to
// the shutdown timeout and leaves queued jobs in the broker.
package queue
