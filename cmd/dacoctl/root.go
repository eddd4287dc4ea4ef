package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/config"
	"github.com/garyjia/daco-workflow/internal/container"
	"github.com/garyjia/daco-workflow/pkg/utils"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dacoctl",
		Short:         "Operator tools for the DACO workflow service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to the YAML config file (empty for defaults and environment only)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newRemindCmd(opts),
		newHistoryCmd(opts),
		newLedgerCmd(opts),
	)
	return cmd
}

// load reads .env, configuration and builds the CLI logger
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewCLILogger(o.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// startContainer wires every component without starting background workers
func (o *rootOptions) startContainer(cmd *cobra.Command) (*container.Container, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, err
	}

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(cmd.Context(), false); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
