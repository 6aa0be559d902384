package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/dealqueue/core/queue"
)

func newListCmd() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "List jobs of a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := queue.QueueName(args[0])
			if !name.Valid() {
				return fmt.Errorf("%w: %q", queue.ErrUnknownQueue, name)
			}

			wanted := queue.JobStatuses()
			if len(statuses) > 0 {
				wanted = wanted[:0]
				for _, s := range statuses {
					status := queue.JobStatus(strings.ToLower(s))
					if !status.Valid() {
						return fmt.Errorf("%w: %q", queue.ErrInvalidStatus, s)
					}
					wanted = append(wanted, status)
				}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var found []*queue.Job
			for _, status := range wanted {
				jobs, err := a.manager.ListJobs(ctx, name, status)
				if err != nil {
					return err
				}
				found = append(found, jobs...)
			}
			slices.SortFunc(found, func(x, y *queue.Job) int {
				return x.CreatedAt.Compare(y.CreatedAt)
			})

			if a.manager.Mode() == queue.ModeLocal {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: broker unavailable, only jobs of this process are listed")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tATTEMPTS\tPROGRESS\tCREATED\tFAILED_REASON")
			for _, job := range found {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d%%\t%s\t%s\n",
					job.ID,
					job.Status(),
					job.AttemptsMade(), job.Options.Attempts,
					job.Progress(),
					job.CreatedAt.Format(time.RFC3339),
					job.FailedReason(),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "statuses to list (default all)")
	return cmd
}
