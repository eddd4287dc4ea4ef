package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/sqlite"
)

const ledgerColumns = `id, application_id, application_action_id, email_type,
	recipient_addresses, status, error_message, reserved_at, sent_at`

// NotificationLedgerRepository implements port.NotificationLedgerRepository
type NotificationLedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationLedgerRepository creates a new ledger repository
func NewNotificationLedgerRepository(db *sql.DB, logger *zap.Logger) port.NotificationLedgerRepository {
	return &NotificationLedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Reserve claims an idempotency key in PENDING status
func (r *NotificationLedgerRepository) Reserve(ctx context.Context, entry *entity.NotificationLedgerEntry, staleBefore time.Time) (bool, error) {
	recipients, err := json.Marshal(entry.RecipientAddresses)
	if err != nil {
		return false, fmt.Errorf("failed to marshal recipients: %w", err)
	}

	// The conflict branch only fires for keys whose previous attempt failed or was abandoned.
	query := `
		INSERT INTO notification_ledger (
			application_id, application_action_id, email_type,
			recipient_addresses, status, error_message, reserved_at
		) VALUES (?, ?, ?, ?, 'PENDING', '', ?)
		ON CONFLICT (application_id, application_action_id, email_type) DO UPDATE SET
			recipient_addresses = excluded.recipient_addresses,
			status = 'PENDING',
			error_message = '',
			reserved_at = excluded.reserved_at
		WHERE notification_ledger.status = 'FAILED'
			OR (notification_ledger.status = 'PENDING' AND notification_ledger.reserved_at < ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.ApplicationID,
		entry.ApplicationActionID,
		string(entry.EmailType),
		string(recipients),
		entry.ReservedAt.UTC(),
		staleBefore.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to reserve ledger entry",
			zap.String("application_id", entry.ApplicationID),
			zap.Int64("application_action_id", entry.ApplicationActionID),
			zap.String("email_type", string(entry.EmailType)),
			zap.Error(err))
		return false, fmt.Errorf("failed to reserve ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	// last_insert_rowid is not updated by the upsert's UPDATE branch
	idQuery := `
		SELECT id FROM notification_ledger
		WHERE application_id = ? AND application_action_id = ? AND email_type = ?
	`
	err = r.getExecutor(ctx).QueryRowContext(ctx, idQuery,
		entry.ApplicationID, entry.ApplicationActionID, string(entry.EmailType),
	).Scan(&entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to read ledger id: %w", err)
	}

	entry.Status = entity.LedgerStatusPending
	return true, nil
}

// MarkSent marks a reserved entry as delivered
func (r *NotificationLedgerRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `
		UPDATE notification_ledger
		SET status = 'SENT', sent_at = ?, error_message = ''
		WHERE id = ?
	`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, sentAt.UTC(), id); err != nil {
		r.logger.Error("Failed to mark ledger entry as sent",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark sent: %w", err)
	}

	return nil
}

// MarkFailed releases a reserved entry so a later run can retry it
func (r *NotificationLedgerRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `
		UPDATE notification_ledger
		SET status = 'FAILED', error_message = ?
		WHERE id = ?
	`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, errorMsg, id); err != nil {
		r.logger.Error("Failed to mark ledger entry as failed",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark failed: %w", err)
	}

	return nil
}

// Get retrieves the entry for an idempotency key
func (r *NotificationLedgerRepository) Get(ctx context.Context, applicationID string, actionID int64, emailType entity.EmailType) (*entity.NotificationLedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM notification_ledger
		WHERE application_id = ? AND application_action_id = ? AND email_type = ?`

	entry, err := scanLedgerEntry(r.getExecutor(ctx).QueryRowContext(ctx, query, applicationID, actionID, string(emailType)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ledger entry",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// ListByApplication returns every ledger entry for an application in reservation order
func (r *NotificationLedgerRepository) ListByApplication(ctx context.Context, applicationID string) ([]*entity.NotificationLedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM notification_ledger
		WHERE application_id = ?
		ORDER BY id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.NotificationLedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *NotificationLedgerRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

func scanLedgerEntry(row rowScanner) (*entity.NotificationLedgerEntry, error) {
	var entry entity.NotificationLedgerEntry
	var emailType, status, recipients string
	var sentAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&entry.ApplicationID,
		&entry.ApplicationActionID,
		&emailType,
		&recipients,
		&status,
		&entry.ErrorMessage,
		&entry.ReservedAt,
		&sentAt,
	)
	if err != nil {
		return nil, err
	}

	entry.EmailType = entity.EmailType(emailType)
	entry.Status = entity.LedgerStatus(status)
	if err := json.Unmarshal([]byte(recipients), &entry.RecipientAddresses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
	}
	if sentAt.Valid {
		entry.SentAt = &sentAt.Time
	}

	return &entry, nil
}

// Verify interface compliance
var _ port.NotificationLedgerRepository = (*NotificationLedgerRepository)(nil)
