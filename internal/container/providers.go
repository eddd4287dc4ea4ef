package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/application/reminder"
	"github.com/garyjia/daco-workflow/internal/application/service"
	"github.com/garyjia/daco-workflow/internal/application/validation"
	"github.com/garyjia/daco-workflow/internal/application/workflow"
	"github.com/garyjia/daco-workflow/internal/infrastructure/export"
	infraLark "github.com/garyjia/daco-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/daco-workflow/internal/infrastructure/notify"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/daco-workflow/internal/infrastructure/worker"
	"github.com/garyjia/daco-workflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
	SchemaVersion  int64
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	version, err := database.Migrate(ctx, db.DB, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
		SchemaVersion:  version,
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Application: repository.NewApplicationRepository(sqlDB, logger),
		Action:      repository.NewActionRepository(sqlDB, logger),
		Revision:    repository.NewRevisionRequestRepository(sqlDB, logger),
		Ledger:      repository.NewNotificationLedgerRepository(sqlDB, logger),
	}, nil
}

// ProvideNotificationSender selects the reminder transport for the configured channel.
func ProvideNotificationSender(cfg *NotificationConfig, larkCfg *LarkConfig, logger *zap.Logger) (port.NotificationSender, error) {
	if cfg == nil || larkCfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}

	switch cfg.Channel {
	case "lark":
		sdkClient, err := infraLark.NewSDKClient(infraLark.Config{
			AppID:     larkCfg.AppID,
			AppSecret: larkCfg.AppSecret,
		}, logger)
		if err != nil {
			return nil, err
		}
		return infraLark.NewSender(sdkClient, logger.Named("lark")), nil
	case "log":
		return notify.NewLogSender(logger.Named("reminder")), nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.Channel)
	}
}

// ServiceDeps holds dependencies needed to create services.
type ServiceDeps struct {
	Repos *RepositoryBundle
	// Location is the time zone printed in history exports
	Location *time.Location
	Logger   *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	adapter := &zapLoggerAdapter{logger: deps.Logger}
	exporter := export.NewXLSXExporter(deps.Location)

	return &ServiceBundle{
		AuditLog:  service.NewAuditLogService(deps.Repos.Action, deps.Repos.Application, exporter, adapter),
		Revisions: service.NewRevisionService(deps.Repos.Revision, adapter),
	}, nil
}

// WorkflowDeps holds dependencies needed to create the workflow engine.
type WorkflowDeps struct {
	Repos     *RepositoryBundle
	Services  *ServiceBundle
	TxManager port.TransactionManager
	Config    *WorkflowConfig
	Logger    *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil || deps.Services == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("workflow dependencies are incomplete")
	}

	return workflow.NewEngine(
		deps.Repos.Application,
		deps.Services.AuditLog,
		deps.Services.Revisions,
		validation.New(),
		deps.TxManager,
		workflow.WithTransitionTimeout(deps.Config.TransitionTimeout),
		workflow.WithAccessPeriod(deps.Config.AccessPeriod),
		workflow.WithLogger(deps.Logger.Named("workflow")),
	), nil
}

// ProvideReminderScheduler creates the reminder scheduler.
func ProvideReminderScheduler(cfg *ReminderConfig, repos *RepositoryBundle, services *ServiceBundle, sender port.NotificationSender, logger *zap.Logger) *reminder.Scheduler {
	return reminder.NewScheduler(
		reminder.Config{
			Interval:       cfg.Interval,
			ThresholdDays:  cfg.ThresholdDays,
			Location:       cfg.Location,
			SendTimeout:    cfg.SendTimeout,
			ReservationTTL: cfg.ReservationTTL,
			DACEmails:      cfg.DACEmails,
			PortalURL:      cfg.PortalURL,
		},
		repos.Application,
		services.AuditLog,
		services.Revisions,
		repos.Ledger,
		sender,
		logger.Named("reminder"),
	)
}

// ProvideWorkers creates the worker manager and registers enabled workers.
func ProvideWorkers(cfg *ReminderConfig, scheduler *reminder.Scheduler, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger.Named("worker"))
	if cfg.Enabled && scheduler != nil {
		manager.Register(scheduler)
	}
	return manager
}
