package workflow

import (
	"context"
	"errors"

	"github.com/garyjia/daco-workflow/internal/application/service"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// ErrInvalidActor is returned when a request carries no user or an unknown role
var ErrInvalidActor = errors.New("invalid actor")

// TransitionRequest identifies who fires a trigger on which application.
// ExpectedVersion pins the snapshot the caller observed; nil accepts the stored version.
type TransitionRequest struct {
	ApplicationID   string
	Actor           entity.Actor
	ExpectedVersion *int64
}

// EventInput carries the payload some triggers need
type EventInput struct {
	Content  *entity.ApplicationContent
	Revision *service.RevisionInput
}

// TransitionResult is the outcome of an accepted transition
type TransitionResult struct {
	Application     *entity.Application
	Action          *entity.ApplicationAction
	RevisionRequest *entity.RevisionRequest
}

// WorkflowEngine drives applications through the review workflow
type WorkflowEngine interface {
	// Create stores a new DRAFT application owned by owner. No audit row is written.
	Create(ctx context.Context, owner entity.Actor, content entity.ApplicationContent) (*entity.Application, error)

	// Submit validates content and moves the application to the next review stage
	Submit(ctx context.Context, req TransitionRequest, content *entity.ApplicationContent) (*TransitionResult, error)

	// Edit returns the application to DRAFT, optionally replacing its content
	Edit(ctx context.Context, req TransitionRequest, content *entity.ApplicationContent) (*TransitionResult, error)

	Close(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	RequestRevision(ctx context.Context, req TransitionRequest, input service.RevisionInput) (*TransitionResult, error)
	Approve(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	Reject(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	Revoke(ctx context.Context, req TransitionRequest) (*TransitionResult, error)

	// ApplyEvent fires any trigger. The named operations above are shorthands for it.
	ApplyEvent(ctx context.Context, req TransitionRequest, trigger domainwf.Trigger, input EventInput) (*TransitionResult, error)

	GetApplication(ctx context.Context, applicationID string) (*entity.Application, error)
	GetCurrentState(ctx context.Context, applicationID string) (domainwf.State, error)
	PermittedTriggers(ctx context.Context, applicationID string) ([]domainwf.Trigger, error)
}
