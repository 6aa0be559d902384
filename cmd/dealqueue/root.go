package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dealqueue",
		Short:         "Resilient background job queue for deal flow processing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newWorkerCmd(), newEnqueueCmd(), newListCmd())
	return root
}
