package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newRemindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.startContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			start := time.Now()
			summary, err := c.ReminderScheduler().RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), commandOutput{
				Command:    "remind",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     summary,
			})
		},
	}
}
