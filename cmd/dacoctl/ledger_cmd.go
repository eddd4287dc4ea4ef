package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/daco-workflow/internal/domain/entity"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Reminder idempotency ledger",
	}
	cmd.AddCommand(newLedgerListCmd(opts))
	return cmd
}

func newLedgerListCmd(opts *rootOptions) *cobra.Command {
	var applicationID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries for an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.startContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			start := time.Now()
			entries, err := c.Repositories().Ledger.ListByApplication(cmd.Context(), applicationID)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []*entity.NotificationLedgerEntry{}
			}

			return writeJSON(cmd.OutOrStdout(), commandOutput{
				Command:    "ledger list",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     entries,
			})
		},
	}

	cmd.Flags().StringVar(&applicationID, "application", "", "Application id (required)")
	_ = cmd.MarkFlagRequired("application")
	return cmd
}
