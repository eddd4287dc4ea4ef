package port

import (
	"context"
	"time"

	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// StateChange describes a compare-and-swap update of an application's state
type StateChange struct {
	ApplicationID   string
	From            workflow.State
	To              workflow.State
	ExpectedVersion int64
	At              time.Time
}

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error

	// GetByID returns nil, nil when the application does not exist
	GetByID(ctx context.Context, id string) (*entity.Application, error)

	// CompareAndSwapState applies change only if the stored state and version still match.
	// It reports false when another writer got there first.
	CompareAndSwapState(ctx context.Context, change StateChange) (bool, error)

	UpdateContent(ctx context.Context, id string, content entity.ApplicationContent, at time.Time) error
	SetApproval(ctx context.Context, id string, approvedAt, expiresAt time.Time) error
	ListByStates(ctx context.Context, states []workflow.State) ([]*entity.Application, error)
}

// ActionQuery filters and pages the audit log of one application
type ActionQuery struct {
	UserID     string
	Limit      int
	Offset     int
	Descending bool
}

// ActionRepository is the append-only audit log store
type ActionRepository interface {
	Append(ctx context.Context, action *entity.ApplicationAction) error

	// List returns the requested page and the total number of matching rows
	List(ctx context.Context, applicationID string, query ActionQuery) ([]*entity.ApplicationAction, int, error)

	// MostRecent returns nil, nil when the application has no actions
	MostRecent(ctx context.Context, applicationID string) (*entity.ApplicationAction, error)
}

// RevisionRequestRepository defines persistence operations for RevisionRequest
type RevisionRequestRepository interface {
	Create(ctx context.Context, rr *entity.RevisionRequest) error
	GetByID(ctx context.Context, id string) (*entity.RevisionRequest, error)
	GetLatest(ctx context.Context, applicationID string) (*entity.RevisionRequest, error)

	// ListByApplication returns revision requests oldest first
	ListByApplication(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error)
}

// NotificationLedgerRepository stores reminder idempotency records
type NotificationLedgerRepository interface {
	// Reserve claims the entry's key in PENDING status. A key already SENT, or PENDING
	// since staleBefore or later, is not claimable and Reserve reports false.
	// FAILED keys and stale PENDING keys are reclaimed. On success entry.ID is set.
	Reserve(ctx context.Context, entry *entity.NotificationLedgerEntry, staleBefore time.Time) (bool, error)

	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
	Get(ctx context.Context, applicationID string, actionID int64, emailType entity.EmailType) (*entity.NotificationLedgerEntry, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*entity.NotificationLedgerEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
