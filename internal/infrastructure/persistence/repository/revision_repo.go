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

const revisionColumns = `id, application_id, action_state, comments,
	applicant_approved, applicant_notes,
	representative_approved, representative_notes,
	collaborators_approved, collaborators_notes,
	project_approved, project_notes,
	requested_studies_approved, requested_studies_notes,
	created_at`

// RevisionRequestRepository implements port.RevisionRequestRepository
type RevisionRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRevisionRequestRepository creates a new revision request repository
func NewRevisionRequestRepository(db *sql.DB, logger *zap.Logger) port.RevisionRequestRepository {
	return &RevisionRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a revision request
func (r *RevisionRequestRepository) Create(ctx context.Context, rr *entity.RevisionRequest) error {
	query := `INSERT INTO revision_requests (` + revisionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		rr.ID,
		rr.ApplicationID,
		rr.ActionState.String(),
		rr.Comments,
		rr.Applicant.Approved, rr.Applicant.Notes,
		rr.Representative.Approved, rr.Representative.Notes,
		rr.Collaborators.Approved, rr.Collaborators.Notes,
		rr.Project.Approved, rr.Project.Notes,
		rr.RequestedStudies.Approved, rr.RequestedStudies.Notes,
		rr.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create revision request",
			zap.String("application_id", rr.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create revision request: %w", err)
	}

	return nil
}

// GetByID retrieves a revision request by ID
func (r *RevisionRequestRepository) GetByID(ctx context.Context, id string) (*entity.RevisionRequest, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_requests WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetLatest retrieves the newest revision request of an application
func (r *RevisionRequestRepository) GetLatest(ctx context.Context, applicationID string) (*entity.RevisionRequest, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_requests
		WHERE application_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`
	return r.getOne(ctx, query, applicationID)
}

// ListByApplication returns every revision request of an application, oldest first
func (r *RevisionRequestRepository) ListByApplication(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_requests
		WHERE application_id = ?
		ORDER BY created_at ASC, rowid ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list revision requests",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list revision requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.RevisionRequest
	for rows.Next() {
		rr, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision request: %w", err)
		}
		requests = append(requests, rr)
	}

	return requests, rows.Err()
}

func (r *RevisionRequestRepository) getOne(ctx context.Context, query string, arg string) (*entity.RevisionRequest, error) {
	rr, err := scanRevision(r.getExecutor(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get revision request", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get revision request: %w", err)
	}
	return rr, nil
}

func (r *RevisionRequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

func scanRevision(row rowScanner) (*entity.RevisionRequest, error) {
	var rr entity.RevisionRequest
	var state string
	notes := make([]sql.NullString, 5)

	err := row.Scan(
		&rr.ID,
		&rr.ApplicationID,
		&state,
		&rr.Comments,
		&rr.Applicant.Approved, &notes[0],
		&rr.Representative.Approved, &notes[1],
		&rr.Collaborators.Approved, &notes[2],
		&rr.Project.Approved, &notes[3],
		&rr.RequestedStudies.Approved, &notes[4],
		&rr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rr.ActionState = workflow.State(state)
	rr.Applicant.Notes = nullableString(notes[0])
	rr.Representative.Notes = nullableString(notes[1])
	rr.Collaborators.Notes = nullableString(notes[2])
	rr.Project.Notes = nullableString(notes[3])
	rr.RequestedStudies.Notes = nullableString(notes[4])

	return &rr, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Verify interface compliance
var _ port.RevisionRequestRepository = (*RevisionRequestRepository)(nil)
