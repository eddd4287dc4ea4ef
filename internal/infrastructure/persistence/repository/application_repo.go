package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/sqlite"
)

const applicationColumns = `id, owner_user_id, state, content, version,
	created_at, updated_at, approved_at, expires_at`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	content, err := json.Marshal(app.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	query := `
		INSERT INTO applications (
			id, owner_user_id, state, content, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		app.ID,
		app.OwnerUserID,
		app.State.String(),
		string(content),
		app.Version,
		app.CreatedAt.UTC(),
		app.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create application",
			zap.String("application_id", app.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	app, err := scanApplication(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application by ID",
			zap.String("application_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// CompareAndSwapState moves the application to change.To if nobody moved it since it was read
func (r *ApplicationRepository) CompareAndSwapState(ctx context.Context, change port.StateChange) (bool, error) {
	query := `
		UPDATE applications
		SET state = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND state = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		change.To.String(),
		change.At.UTC(),
		change.ApplicationID,
		change.From.String(),
		change.ExpectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update application state",
			zap.String("application_id", change.ApplicationID),
			zap.String("from", change.From.String()),
			zap.String("to", change.To.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// UpdateContent replaces the stored form content
func (r *ApplicationRepository) UpdateContent(ctx context.Context, id string, content entity.ApplicationContent, at time.Time) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	query := `UPDATE applications SET content = ?, updated_at = ? WHERE id = ?`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, string(raw), at.UTC(), id); err != nil {
		r.logger.Error("Failed to update application content",
			zap.String("application_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update content: %w", err)
	}

	return nil
}

// SetApproval records the approval and access expiry timestamps
func (r *ApplicationRepository) SetApproval(ctx context.Context, id string, approvedAt, expiresAt time.Time) error {
	query := `UPDATE applications SET approved_at = ?, expires_at = ? WHERE id = ?`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, approvedAt.UTC(), expiresAt.UTC(), id); err != nil {
		r.logger.Error("Failed to set approval time",
			zap.String("application_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to set approval time: %w", err)
	}

	return nil
}

// ListByStates returns every application currently in one of states, oldest first
func (r *ApplicationRepository) ListByStates(ctx context.Context, states []workflow.State) ([]*entity.Application, error) {
	if len(states) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(states))
	args := make([]interface{}, len(states))
	for i, s := range states {
		placeholders[i] = "?"
		args[i] = s.String()
	}

	query := `SELECT ` + applicationColumns + ` FROM applications
		WHERE state IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications by state", zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

func (r *ApplicationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*entity.Application, error) {
	var app entity.Application
	var state, content string
	var approvedAt, expiresAt sql.NullTime

	err := row.Scan(
		&app.ID,
		&app.OwnerUserID,
		&state,
		&content,
		&app.Version,
		&app.CreatedAt,
		&app.UpdatedAt,
		&approvedAt,
		&expiresAt,
	)
	if err != nil {
		return nil, err
	}

	app.State = workflow.State(state)
	if err := json.Unmarshal([]byte(content), &app.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}
	if approvedAt.Valid {
		app.ApprovedAt = &approvedAt.Time
	}
	if expiresAt.Valid {
		app.ExpiresAt = &expiresAt.Time
	}

	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
