package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/application/service"
	"github.com/garyjia/daco-workflow/internal/application/validation"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Defaults for engine options
const (
	DefaultTransitionTimeout = 10 * time.Second
	DefaultAccessPeriod      = 365 * 24 * time.Hour
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	appRepo   port.ApplicationRepository
	auditLog  service.AuditLogService
	revisions service.RevisionService
	validator validation.Validator
	txManager port.TransactionManager

	now               func() time.Time
	transitionTimeout time.Duration
	accessPeriod      time.Duration
	logger            *zap.Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithClock sets the time source used for audit rows and timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithTransitionTimeout bounds each transition
func WithTransitionTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		if d > 0 {
			e.transitionTimeout = d
		}
	}
}

// WithAccessPeriod sets how long an approval grants access
func WithAccessPeriod(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		if d > 0 {
			e.accessPeriod = d
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *engineImpl) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	appRepo port.ApplicationRepository,
	auditLog service.AuditLogService,
	revisions service.RevisionService,
	validator validation.Validator,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		appRepo:           appRepo,
		auditLog:          auditLog,
		revisions:         revisions,
		validator:         validator,
		txManager:         txManager,
		now:               time.Now,
		transitionTimeout: DefaultTransitionTimeout,
		accessPeriod:      DefaultAccessPeriod,
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Create(ctx context.Context, owner entity.Actor, content entity.ApplicationContent) (*entity.Application, error) {
	if err := checkActor(owner); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	app := &entity.Application{
		ID:          uuid.NewString(),
		OwnerUserID: owner.UserID,
		State:       domainwf.StateDraft,
		Content:     content,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.appRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}

	e.logger.Info("Application created",
		zap.String("application_id", app.ID),
		zap.String("owner", owner.UserID))
	return app, nil
}

func (e *engineImpl) Submit(ctx context.Context, req TransitionRequest, content *entity.ApplicationContent) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerSubmit, EventInput{Content: content})
}

func (e *engineImpl) Edit(ctx context.Context, req TransitionRequest, content *entity.ApplicationContent) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerEdit, EventInput{Content: content})
}

func (e *engineImpl) Close(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerClose, EventInput{})
}

func (e *engineImpl) RequestRevision(ctx context.Context, req TransitionRequest, input service.RevisionInput) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerRevisionRequest, EventInput{Revision: &input})
}

func (e *engineImpl) Approve(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerApprove, EventInput{})
}

func (e *engineImpl) Reject(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerReject, EventInput{})
}

func (e *engineImpl) Revoke(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	return e.ApplyEvent(ctx, req, domainwf.TriggerRevoked, EventInput{})
}

// ApplyEvent runs guard, validation and the transactional write for one trigger
func (e *engineImpl) ApplyEvent(ctx context.Context, req TransitionRequest, trigger domainwf.Trigger, input EventInput) (*TransitionResult, error) {
	start := time.Now()
	result, err := e.transition(ctx, req, trigger, input)

	transitionsTotal.WithLabelValues(trigger.String(), resultLabel(err)).Inc()
	transitionDuration.WithLabelValues(trigger.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		e.logger.Info("Transition refused",
			zap.String("application_id", req.ApplicationID),
			zap.String("trigger", trigger.String()),
			zap.String("user_id", req.Actor.UserID),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Transition applied",
		zap.String("application_id", req.ApplicationID),
		zap.String("trigger", trigger.String()),
		zap.String("from", result.Action.StateBefore.String()),
		zap.String("to", result.Action.StateAfter.String()),
		zap.String("user_id", req.Actor.UserID),
		zap.String("role", string(req.Actor.Role)))
	return result, nil
}

func (e *engineImpl) transition(ctx context.Context, req TransitionRequest, trigger domainwf.Trigger, input EventInput) (*TransitionResult, error) {
	if !trigger.IsValid() {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrInvalidTrigger, trigger)
	}
	if err := checkActor(req.Actor); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.transitionTimeout)
	defer cancel()

	app, err := e.load(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != nil && *req.ExpectedVersion != app.Version {
		return nil, fmt.Errorf("%w: expected version %d, stored %d",
			domainwf.ErrConcurrentModification, *req.ExpectedVersion, app.Version)
	}

	// Guard first: a terminal state reports InvalidTransition even with incomplete content
	previous := app.State
	tr, err := domainwf.Resolve(previous, trigger)
	if err != nil {
		return nil, err
	}
	next := tr.To

	switch tr.Effect {
	case domainwf.EffectSubmitContent:
		content := &app.Content
		if input.Content != nil {
			content = input.Content
		}
		if err := e.validator.Validate(content); err != nil {
			return nil, err
		}
	case domainwf.EffectRecordRevision:
		if input.Revision == nil {
			return nil, fmt.Errorf("%w: missing section reviews", domainwf.ErrInvalidRevisionRequest)
		}
		if err := input.Revision.Validate(); err != nil {
			return nil, err
		}
	}

	now := e.now().UTC()
	result := &TransitionResult{}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		swapped, err := e.appRepo.CompareAndSwapState(txCtx, port.StateChange{
			ApplicationID:   app.ID,
			From:            previous,
			To:              next,
			ExpectedVersion: app.Version,
			At:              now,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
		}
		if !swapped {
			return fmt.Errorf("%w: application %s changed since version %d",
				domainwf.ErrConcurrentModification, app.ID, app.Version)
		}

		if input.Content != nil && tr.StoresContent() {
			if err := e.appRepo.UpdateContent(txCtx, app.ID, *input.Content, now); err != nil {
				return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
			}
			app.Content = *input.Content
		}

		action := &entity.ApplicationAction{
			ApplicationID: app.ID,
			UserID:        req.Actor.UserID,
			ActorRole:     req.Actor.Role,
			Action:        trigger,
			StateBefore:   previous,
			StateAfter:    next,
			CreatedAt:     now,
		}

		if tr.Effect == domainwf.EffectRecordRevision {
			rr, err := e.revisions.Create(txCtx, app.ID, previous, *input.Revision)
			if err != nil {
				return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
			}
			action.RevisionRequestID = &rr.ID
			result.RevisionRequest = rr
		}

		if err := e.auditLog.Append(txCtx, action); err != nil {
			return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
		}
		result.Action = action

		if tr.Effect == domainwf.EffectGrantAccess {
			expiresAt := now.Add(e.accessPeriod)
			if err := e.appRepo.SetApproval(txCtx, app.ID, now, expiresAt); err != nil {
				return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
			}
			app.ApprovedAt = &now
			app.ExpiresAt = &expiresAt
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domainwf.ErrConcurrentModification) || errors.Is(err, domainwf.ErrPersistence) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}

	app.State = next
	app.Version++
	app.UpdatedAt = now
	result.Application = app
	return result, nil
}

func (e *engineImpl) GetApplication(ctx context.Context, applicationID string) (*entity.Application, error) {
	return e.load(ctx, applicationID)
}

func (e *engineImpl) GetCurrentState(ctx context.Context, applicationID string) (domainwf.State, error) {
	app, err := e.load(ctx, applicationID)
	if err != nil {
		return "", err
	}
	return app.State, nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, applicationID string) ([]domainwf.Trigger, error) {
	app, err := e.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return domainwf.NewStateMachine(app.State).PermittedTriggers(), nil
}

func (e *engineImpl) load(ctx context.Context, applicationID string) (*entity.Application, error) {
	app, err := e.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if app == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrApplicationNotFound, applicationID)
	}
	if !app.State.IsValid() {
		return nil, fmt.Errorf("%w: application %s stored in %q", domainwf.ErrInvalidState, app.ID, app.State)
	}
	return app, nil
}

func checkActor(actor entity.Actor) error {
	if actor.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidActor)
	}
	if !actor.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidActor, actor.Role)
	}
	return nil
}
