package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// RevisionInput carries the reviewer's per-section verdicts
type RevisionInput struct {
	Comments         string               `json:"comments"`
	Applicant        entity.SectionReview `json:"applicant"`
	Representative   entity.SectionReview `json:"representative"`
	Collaborators    entity.SectionReview `json:"collaborators"`
	Project          entity.SectionReview `json:"project"`
	RequestedStudies entity.SectionReview `json:"requested_studies"`
}

// Validate rejects a request that approves every section and says nothing
func (in RevisionInput) Validate() error {
	allApproved := in.Applicant.Approved &&
		in.Representative.Approved &&
		in.Collaborators.Approved &&
		in.Project.Approved &&
		in.RequestedStudies.Approved
	if allApproved && in.Comments == "" {
		return fmt.Errorf("%w: no section flagged and no comments", workflow.ErrInvalidRevisionRequest)
	}
	return nil
}

// RevisionService manages revision requests raised during review
type RevisionService interface {
	// Create records a new revision request. When ctx carries a transaction the row joins it.
	Create(ctx context.Context, applicationID string, actionState workflow.State, input RevisionInput) (*entity.RevisionRequest, error)
	LatestFor(ctx context.Context, applicationID string) (*entity.RevisionRequest, error)
	ListFor(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error)
}

type revisionServiceImpl struct {
	revisionRepo port.RevisionRequestRepository
	now          func() time.Time
	logger       Logger
}

// RevisionOption configures the revision service
type RevisionOption func(*revisionServiceImpl)

// WithRevisionClock overrides the time source for CreatedAt
func WithRevisionClock(now func() time.Time) RevisionOption {
	return func(s *revisionServiceImpl) {
		s.now = now
	}
}

// NewRevisionService creates a new RevisionService
func NewRevisionService(revisionRepo port.RevisionRequestRepository, logger Logger, opts ...RevisionOption) RevisionService {
	s := &revisionServiceImpl{
		revisionRepo: revisionRepo,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *revisionServiceImpl) Create(ctx context.Context, applicationID string, actionState workflow.State, input RevisionInput) (*entity.RevisionRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	rr := &entity.RevisionRequest{
		ID:               uuid.NewString(),
		ApplicationID:    applicationID,
		ActionState:      actionState,
		Comments:         input.Comments,
		Applicant:        input.Applicant,
		Representative:   input.Representative,
		Collaborators:    input.Collaborators,
		Project:          input.Project,
		RequestedStudies: input.RequestedStudies,
		CreatedAt:        s.now(),
	}

	if err := s.revisionRepo.Create(ctx, rr); err != nil {
		return nil, fmt.Errorf("failed to create revision request: %w", err)
	}

	s.logger.Info("Revision request created",
		"application_id", applicationID,
		"revision_request_id", rr.ID,
		"sections", rr.SectionsNeedingWork())
	return rr, nil
}

func (s *revisionServiceImpl) LatestFor(ctx context.Context, applicationID string) (*entity.RevisionRequest, error) {
	rr, err := s.revisionRepo.GetLatest(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest revision request: %w", err)
	}
	return rr, nil
}

func (s *revisionServiceImpl) ListFor(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error) {
	requests, err := s.revisionRepo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revision requests: %w", err)
	}
	if requests == nil {
		requests = []*entity.RevisionRequest{}
	}
	return requests, nil
}
