package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/config"
	"github.com/garyjia/daco-workflow/internal/container"
	apphttp "github.com/garyjia/daco-workflow/internal/interfaces/http"
	"github.com/garyjia/daco-workflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Optional .env for local credentials
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "daco-workflow",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting DACO workflow service",
		zap.Int("port", cfg.Server.Port),
		zap.String("notification_channel", cfg.Notification.Channel),
		zap.Bool("reminders_enabled", cfg.Reminder.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	if err := c.Start(ctx, true); err != nil {
		c.Close()
		return fmt.Errorf("start container: %w", err)
	}

	repos := c.Repositories()
	server := apphttp.NewServer(apphttp.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, apphttp.Deps{
		Engine:       c.WorkflowEngine(),
		AuditLog:     c.Services().AuditLog,
		Revisions:    c.Services().Revisions,
		Applications: repos.Application,
		Ledger:       repos.Ledger,
		Health: func(ctx context.Context) (bool, interface{}) {
			h := c.Health(ctx)
			return h.Overall, h.Components
		},
	}, c.ServiceLogger())

	serverCtx, cancelServer := context.WithCancel(context.Background())
	defer cancelServer()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(serverCtx) }()

	// Shutdown order: workers, then the HTTP server, then the database
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		if err := c.Workers().StopAll(); err != nil {
			logger.Error("Failed to stop workers", zap.Error(err))
		}
		cancelServer()
		serveErr = <-errCh
	case serveErr = <-errCh:
	}

	if err := c.Close(); err != nil {
		logger.Error("Container shutdown error", zap.Error(err))
	}

	return serveErr
}
