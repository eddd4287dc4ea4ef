package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Application audit history",
	}
	cmd.AddCommand(newHistoryExportCmd(opts))
	return cmd
}

func newHistoryExportCmd(opts *rootOptions) *cobra.Command {
	var (
		applicationID string
		outPath       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an application's history to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.startContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}

			if err := c.Services().AuditLog.ExportHistory(cmd.Context(), applicationID, f); err != nil {
				f.Close()
				os.Remove(outPath)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&applicationID, "application", "", "Application id (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output .xlsx path (required)")
	_ = cmd.MarkFlagRequired("application")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
