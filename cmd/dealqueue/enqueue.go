package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/internal/jobs"
)

type enqueueFlags struct {
	attempts    int
	backoff     string
	delay       time.Duration
	timeout     time.Duration
	keep        bool
	wait        bool
	waitTimeout time.Duration
}

func newEnqueueCmd() *cobra.Command {
	var f enqueueFlags

	cmd := &cobra.Command{
		Use:   "enqueue <queue> <payload-json>",
		Short: "Add a job to a queue",
		Long: `Add a job to a queue. Notification, report and document jobs get their
family defaults; flags override them.

With --wait the processors run in this process and the command blocks until
the job finishes. Without a reachable broker this is the only way a job added
from the command line is executed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := queue.QueueName(args[0])
			if !name.Valid() {
				return fmt.Errorf("%w: %q (expected one of %v)", queue.ErrUnknownQueue, name, queue.QueueNames())
			}
			raw := json.RawMessage(args[1])
			if !json.Valid(raw) {
				return fmt.Errorf("%w: payload is not valid JSON", queue.ErrInvalidPayload)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if f.wait {
				if err := jobs.Register(ctx, a.manager, a.deps); err != nil {
					return err
				}
			}

			job, err := enqueue(ctx, a.manager, name, raw, f.options(cmd))
			if err != nil {
				return err
			}

			if !f.wait {
				if job.Local() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: broker unavailable, the job is dropped when this process exits; use --wait to run it here")
				}
				return printJSON(cmd.OutOrStdout(), job)
			}

			waitCtx, cancel := context.WithTimeout(ctx, f.waitTimeout)
			defer cancel()
			res, err := waitJob(waitCtx, a.manager, job, 100*time.Millisecond)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			if res.Removed {
				return printJSON(cmd.OutOrStdout(), removedJob{
					ID:      job.ID,
					Queue:   job.Queue,
					Status:  "removed",
					Message: "job finished and was removed from the broker",
				})
			}
			if err := printJSON(cmd.OutOrStdout(), res.Job); err != nil {
				return err
			}
			if res.Job.Status() == queue.StatusFailed {
				return fmt.Errorf("job %s failed: %s", res.Job.ID, res.Job.FailedReason())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&f.attempts, "attempts", 0, "maximum number of executions (1-10)")
	cmd.Flags().StringVar(&f.backoff, "backoff", "", "retry backoff type: fixed or exponential")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "base retry delay")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-execution timeout")
	cmd.Flags().BoolVar(&f.keep, "keep", false, "keep the job in the broker after it completes")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "run processors in this process and wait for the job to finish")
	cmd.Flags().DurationVar(&f.waitTimeout, "wait-timeout", 10*time.Minute, "maximum time to wait with --wait")
	return cmd
}

// options returns the job options for flags set on the command line.
func (f enqueueFlags) options(cmd *cobra.Command) []queue.JobOption {
	var opts []queue.JobOption
	flags := cmd.Flags()
	if flags.Changed("attempts") {
		opts = append(opts, queue.WithAttempts(f.attempts))
	}
	if flags.Changed("backoff") || flags.Changed("delay") {
		backoff := queue.BackoffType(f.backoff)
		if backoff == "" {
			backoff = queue.BackoffExponential
		}
		delay := f.delay
		if !flags.Changed("delay") {
			delay = queue.DefaultJobOptions().Backoff.Delay
		}
		opts = append(opts, queue.WithBackoff(backoff, delay))
	}
	if flags.Changed("timeout") {
		opts = append(opts, queue.WithTimeout(f.timeout))
	}
	if flags.Changed("keep") {
		opts = append(opts, queue.WithRemoveOnComplete(!f.keep))
	}
	return opts
}

// enqueue decodes family payloads so they are validated before they reach the queue.
func enqueue(ctx context.Context, m *queue.Manager, name queue.QueueName, raw json.RawMessage, opts []queue.JobOption) (*queue.Job, error) {
	switch name {
	case queue.QueueNotifications:
		var p jobs.NotificationPayload
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		return jobs.EnqueueNotification(ctx, m, p, opts...)
	case queue.QueueReportGeneration:
		var p jobs.ReportPayload
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return jobs.EnqueueReport(ctx, m, p, opts...)
	case queue.QueueDocumentProcessing:
		var p jobs.DocumentPayload
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return jobs.EnqueueDocument(ctx, m, p, opts...)
	default:
		return m.AddJob(ctx, name, raw, opts...)
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", queue.ErrInvalidPayload, err)
	}
	return queue.ValidatePayload(v)
}

// errJobUnobservable is returned when a broker job can no longer be followed
// because its queue moved to the local fallback.
var errJobUnobservable = errors.New("queue moved to local fallback, the job stays in the broker and cannot be followed")

// waitResult is the outcome of waiting for a job. Removed is set when the job
// finished and the broker dropped it, so its final state is unknown.
type waitResult struct {
	Job     *queue.Job
	Removed bool
}

// removedJob is printed for a job that finished and was removed from the broker.
type removedJob struct {
	ID      string          `json:"id"`
	Queue   queue.QueueName `json:"queue"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// waitJob polls until the job finishes. Local jobs are followed through their
// handle; distributed jobs through the broker, for as long as their queue
// stays distributed.
func waitJob(ctx context.Context, m *queue.Manager, job *queue.Job, interval time.Duration) (waitResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if job.Local() {
			if job.Done() {
				return waitResult{Job: job}, nil
			}
		} else {
			done, res, err := pollBroker(ctx, m, job)
			if err != nil || done {
				return res, err
			}
		}

		select {
		case <-ctx.Done():
			return waitResult{}, fmt.Errorf("waiting for job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func pollBroker(ctx context.Context, m *queue.Manager, job *queue.Job) (bool, waitResult, error) {
	if err := brokerBound(ctx, m, job.Queue); err != nil {
		return true, waitResult{}, err
	}

	current, err := m.GetJob(ctx, job.Queue, job.ID)
	switch {
	case err == nil:
		return current.Done(), waitResult{Job: current}, nil
	case errors.Is(err, queue.ErrJobNotFound):
		// A local backend answers not found for every id.
		if err := brokerBound(ctx, m, job.Queue); err != nil {
			return true, waitResult{}, err
		}
		return true, waitResult{Job: job, Removed: true}, nil
	case errors.Is(err, queue.ErrBrokerUnavailable):
		return false, waitResult{}, nil
	default:
		return true, waitResult{}, err
	}
}

func brokerBound(ctx context.Context, m *queue.Manager, name queue.QueueName) error {
	backend, err := m.Queue(ctx, name)
	if err != nil {
		return err
	}
	if backend.Mode() != queue.ModeDistributed {
		return errJobUnobservable
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
