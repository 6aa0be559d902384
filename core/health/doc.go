// Package health provides HTTP handlers for liveness and readiness probes.
//
//	mux.HandleFunc("/health/live", health.Liveness)
//	mux.Handle("/health/ready", health.Readiness(logger, 5*time.Second,
//		health.Check{Name: "queue", Fn: manager.Healthcheck},
//		health.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	))
//
// Readiness answers 503 while any check fails. The queue manager's check fails
// while it runs in local fallback mode, so orchestrators see the degradation.
package health
