package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Pagination bounds for history listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SortOrder orders a history listing by creation time
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ErrMalformedAction is returned when an audit record is missing required fields
var ErrMalformedAction = errors.New("malformed application action")

// ActionQuery selects a page of an application's history
type ActionQuery struct {
	UserID   string
	Page     int
	PageSize int
	Sort     SortOrder
}

// ActionPage is one page of history
type ActionPage struct {
	Items    []*entity.ApplicationAction `json:"items"`
	Total    int                         `json:"total"`
	Page     int                         `json:"page"`
	PageSize int                         `json:"page_size"`
}

// AuditLogService is the single append-only log of accepted transitions
type AuditLogService interface {
	Append(ctx context.Context, action *entity.ApplicationAction) error
	ListByApplication(ctx context.Context, applicationID string, query ActionQuery) (*ActionPage, error)
	MostRecentAction(ctx context.Context, applicationID string) (*entity.ApplicationAction, error)
	ExportHistory(ctx context.Context, applicationID string, w io.Writer) error
}

type auditLogServiceImpl struct {
	actionRepo port.ActionRepository
	appRepo    port.ApplicationRepository
	exporter   port.HistoryExporter
	logger     Logger
}

// NewAuditLogService creates a new AuditLogService
func NewAuditLogService(
	actionRepo port.ActionRepository,
	appRepo port.ApplicationRepository,
	exporter port.HistoryExporter,
	logger Logger,
) AuditLogService {
	return &auditLogServiceImpl{
		actionRepo: actionRepo,
		appRepo:    appRepo,
		exporter:   exporter,
		logger:     logger,
	}
}

// Append writes one audit row. When ctx carries a transaction the row joins it.
func (s *auditLogServiceImpl) Append(ctx context.Context, action *entity.ApplicationAction) error {
	if err := checkAction(action); err != nil {
		return err
	}

	if err := s.actionRepo.Append(ctx, action); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

// ListByApplication returns a page of history. Page is 1-based.
func (s *auditLogServiceImpl) ListByApplication(ctx context.Context, applicationID string, query ActionQuery) (*ActionPage, error) {
	query = normalizeQuery(query)

	items, total, err := s.actionRepo.List(ctx, applicationID, port.ActionQuery{
		UserID:     query.UserID,
		Limit:      query.PageSize,
		Offset:     (query.Page - 1) * query.PageSize,
		Descending: query.Sort == SortDescending,
	})
	if err != nil {
		s.logger.Error("Failed to list application history", "application_id", applicationID, "error", err)
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}

	if items == nil {
		items = []*entity.ApplicationAction{}
	}

	return &ActionPage{
		Items:    items,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

// MostRecentAction returns the latest action, or nil when the application has none
func (s *auditLogServiceImpl) MostRecentAction(ctx context.Context, applicationID string) (*entity.ApplicationAction, error) {
	action, err := s.actionRepo.MostRecent(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent action: %w", err)
	}
	return action, nil
}

// ExportHistory writes the full timeline of an application through the configured exporter
func (s *auditLogServiceImpl) ExportHistory(ctx context.Context, applicationID string, w io.Writer) error {
	if s.exporter == nil {
		return fmt.Errorf("history export is not configured")
	}

	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return fmt.Errorf("%w: %s", workflow.ErrApplicationNotFound, applicationID)
	}

	actions, _, err := s.actionRepo.List(ctx, applicationID, port.ActionQuery{})
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}

	if err := s.exporter.WriteHistory(w, app, actions); err != nil {
		s.logger.Error("Failed to export history", "application_id", applicationID, "error", err)
		return fmt.Errorf("failed to export history: %w", err)
	}

	s.logger.Info("History exported", "application_id", applicationID, "actions", len(actions))
	return nil
}

func checkAction(action *entity.ApplicationAction) error {
	switch {
	case action == nil:
		return fmt.Errorf("%w: nil action", ErrMalformedAction)
	case action.ApplicationID == "":
		return fmt.Errorf("%w: application id is required", ErrMalformedAction)
	case action.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrMalformedAction)
	case !action.ActorRole.IsValid():
		return fmt.Errorf("%w: unknown actor role %q", ErrMalformedAction, action.ActorRole)
	case !action.Action.IsValid():
		return fmt.Errorf("%w: unknown action %q", ErrMalformedAction, action.Action)
	case !action.StateBefore.IsValid() || !action.StateAfter.IsValid():
		return fmt.Errorf("%w: invalid states %q -> %q", ErrMalformedAction, action.StateBefore, action.StateAfter)
	case action.CreatedAt.IsZero():
		return fmt.Errorf("%w: created at is required", ErrMalformedAction)
	}
	return nil
}

func normalizeQuery(q ActionQuery) ActionQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Sort != SortDescending {
		q.Sort = SortAscending
	}
	return q
}
