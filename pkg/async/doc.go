// Package async runs error-returning functions concurrently and collects their results.
//
// Exec starts a function on its own goroutine and returns an ExecFuture:
//
//	email := async.Exec(ctx, msg, sendEmail)
//	push := async.Exec(ctx, msg, sendPush)
//
//	if err := email.Await(); err != nil {
//		logger.Warn("email channel failed", logger.Error(err))
//	}
//
// ExecAll waits for every future and joins all errors with errors.Join, so a
// failed side send does not hide the outcome of the others:
//
//	err := async.ExecAll(email, push)
//
// AwaitWithTimeout bounds the wait and returns ErrTimeout when it expires;
// the function itself keeps running until it honours its context.
package async
