package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-school/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-school/jobs"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	// withJobs opens the queue for the duration of one subcommand.
	withJobs := func(run func(cmd *cobra.Command, args []string, helper *cli.JobsCLI) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			helper := cli.NewJobsCLI(cfg.AsynqRedis())
			defer helper.Close()
			return run(cmd, args, helper)
		}
	}

	var role string
	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a permission cache task",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskSnapshotWarm, jobs.TaskSnapshotWarmAll},
		RunE: withJobs(func(cmd *cobra.Command, args []string, helper *cli.JobsCLI) error {
			return helper.Trigger(cmd.Context(), cmd.OutOrStdout(), args[0], role)
		}),
	}
	trigger.Flags().StringVar(&role, "role", "", "role to warm for "+jobs.TaskSnapshotWarm)

	var queue string
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Print queue statistics",
		Args:  cobra.NoArgs,
		RunE: withJobs(func(cmd *cobra.Command, _ []string, helper *cli.JobsCLI) error {
			return helper.Inspect(cmd.OutOrStdout(), queue)
		}),
	}
	inspect.Flags().StringVar(&queue, "queue", "", "queue name; every queue when empty")

	cmd.AddCommand(trigger, inspect)
	return cmd
}
