package service

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

type mockActionRepo struct {
	appendFunc     func(ctx context.Context, action *entity.ApplicationAction) error
	listFunc       func(ctx context.Context, applicationID string, query port.ActionQuery) ([]*entity.ApplicationAction, int, error)
	mostRecentFunc func(ctx context.Context, applicationID string) (*entity.ApplicationAction, error)
}

func (m *mockActionRepo) Append(ctx context.Context, action *entity.ApplicationAction) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, action)
	}
	return nil
}

func (m *mockActionRepo) List(ctx context.Context, applicationID string, query port.ActionQuery) ([]*entity.ApplicationAction, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, applicationID, query)
	}
	return nil, 0, nil
}

func (m *mockActionRepo) MostRecent(ctx context.Context, applicationID string) (*entity.ApplicationAction, error) {
	if m.mostRecentFunc != nil {
		return m.mostRecentFunc(ctx, applicationID)
	}
	return nil, nil
}

type mockApplicationRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.Application, error)
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *entity.Application) error {
	return nil
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockApplicationRepo) CompareAndSwapState(ctx context.Context, change port.StateChange) (bool, error) {
	return true, nil
}

func (m *mockApplicationRepo) UpdateContent(ctx context.Context, id string, content entity.ApplicationContent, at time.Time) error {
	return nil
}

func (m *mockApplicationRepo) SetApproval(ctx context.Context, id string, approvedAt, expiresAt time.Time) error {
	return nil
}

func (m *mockApplicationRepo) ListByStates(ctx context.Context, states []workflow.State) ([]*entity.Application, error) {
	return nil, nil
}

type mockRevisionRepo struct {
	createFunc    func(ctx context.Context, rr *entity.RevisionRequest) error
	getLatestFunc func(ctx context.Context, applicationID string) (*entity.RevisionRequest, error)
	listFunc      func(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error)
}

func (m *mockRevisionRepo) Create(ctx context.Context, rr *entity.RevisionRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, rr)
	}
	return nil
}

func (m *mockRevisionRepo) GetByID(ctx context.Context, id string) (*entity.RevisionRequest, error) {
	return nil, nil
}

func (m *mockRevisionRepo) GetLatest(ctx context.Context, applicationID string) (*entity.RevisionRequest, error) {
	if m.getLatestFunc != nil {
		return m.getLatestFunc(ctx, applicationID)
	}
	return nil, nil
}

func (m *mockRevisionRepo) ListByApplication(ctx context.Context, applicationID string) ([]*entity.RevisionRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, applicationID)
	}
	return nil, nil
}

type mockExporter struct {
	writeFunc func(w io.Writer, app *entity.Application, actions []*entity.ApplicationAction) error
}

func (m *mockExporter) WriteHistory(w io.Writer, app *entity.Application, actions []*entity.ApplicationAction) error {
	if m.writeFunc != nil {
		return m.writeFunc(w, app, actions)
	}
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
