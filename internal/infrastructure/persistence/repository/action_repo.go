package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/sqlite"
)

const actionColumns = `id, application_id, user_id, actor_role, action,
	state_before, state_after, revision_request_id, created_at`

// ActionRepository implements port.ActionRepository
type ActionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActionRepository creates a new audit log repository
func NewActionRepository(db *sql.DB, logger *zap.Logger) port.ActionRepository {
	return &ActionRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts an audit row and sets its ID
func (r *ActionRepository) Append(ctx context.Context, action *entity.ApplicationAction) error {
	query := `
		INSERT INTO application_actions (
			application_id, user_id, actor_role, action,
			state_before, state_after, revision_request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		action.ApplicationID,
		action.UserID,
		string(action.ActorRole),
		action.Action.String(),
		action.StateBefore.String(),
		action.StateAfter.String(),
		action.RevisionRequestID,
		action.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append application action",
			zap.String("application_id", action.ApplicationID),
			zap.String("action", action.Action.String()),
			zap.Error(err))
		return fmt.Errorf("failed to append action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	action.ID = id
	return nil
}

// List returns one page of an application's audit log and the total match count
func (r *ActionRepository) List(ctx context.Context, applicationID string, q port.ActionQuery) ([]*entity.ApplicationAction, int, error) {
	where := `WHERE application_id = ?`
	args := []interface{}{applicationID}
	if q.UserID != "" {
		where += ` AND user_id = ?`
		args = append(args, q.UserID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM application_actions ` + where
	if err := r.getExecutor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count application actions",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count actions: %w", err)
	}

	order := `ORDER BY created_at ASC, id ASC`
	if q.Descending {
		order = `ORDER BY created_at DESC, id DESC`
	}

	query := `SELECT ` + actionColumns + ` FROM application_actions ` + where + ` ` + order
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list application actions",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*entity.ApplicationAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}

	return actions, total, rows.Err()
}

// MostRecent returns the latest audit row for an application
func (r *ActionRepository) MostRecent(ctx context.Context, applicationID string) (*entity.ApplicationAction, error) {
	query := `SELECT ` + actionColumns + ` FROM application_actions
		WHERE application_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	action, err := scanAction(r.getExecutor(ctx).QueryRowContext(ctx, query, applicationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get most recent action",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get most recent action: %w", err)
	}

	return action, nil
}

func (r *ActionRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

func scanAction(row rowScanner) (*entity.ApplicationAction, error) {
	var action entity.ApplicationAction
	var role, trigger, before, after string
	var revisionID sql.NullString

	err := row.Scan(
		&action.ID,
		&action.ApplicationID,
		&action.UserID,
		&role,
		&trigger,
		&before,
		&after,
		&revisionID,
		&action.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	action.ActorRole = entity.Role(role)
	action.Action = workflow.Trigger(trigger)
	action.StateBefore = workflow.State(before)
	action.StateAfter = workflow.State(after)
	if revisionID.Valid {
		action.RevisionRequestID = &revisionID.String
	}

	return &action, nil
}

// Verify interface compliance
var _ port.ActionRepository = (*ActionRepository)(nil)
