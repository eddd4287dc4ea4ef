package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
	"github.com/garyjia/daco-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/daco-workflow/pkg/database"
)

var baseTime = time.Date(2026, 3, 30, 9, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "repo.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(context.Background(), db.DB, zap.NewNop())
	require.NoError(t, err)
	return db.DB
}

func createApplication(t *testing.T, repo port.ApplicationRepository, id string, state workflow.State) *entity.Application {
	t.Helper()
	app := &entity.Application{
		ID:          id,
		OwnerUserID: "applicant-1",
		State:       state,
		Content: entity.ApplicationContent{
			Applicant: entity.ApplicantInfo{Name: "Ada", Email: "ada@example.org"},
			Project:   entity.ProjectInfo{Title: "Recurrence"},
		},
		Version:   1,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, repo.Create(context.Background(), app))
	return app
}

func TestApplicationRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewApplicationRepository(db, zap.NewNop())
	ctx := context.Background()

	createApplication(t, repo, "app-1", workflow.StateDraft)

	got, err := repo.GetByID(ctx, "app-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workflow.StateDraft, got.State)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "ada@example.org", got.Content.Applicant.Email)
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Nil(t, got.ApprovedAt)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApplicationRepository_CompareAndSwapState(t *testing.T) {
	db := setupDB(t)
	repo := NewApplicationRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, repo, "app-1", workflow.StateDraft)

	change := port.StateChange{
		ApplicationID:   "app-1",
		From:            workflow.StateDraft,
		To:              workflow.StateInstitutionalRepReview,
		ExpectedVersion: 1,
		At:              baseTime.Add(time.Hour),
	}

	swapped, err := repo.CompareAndSwapState(ctx, change)
	require.NoError(t, err)
	assert.True(t, swapped)

	// Same snapshot again loses.
	swapped, err = repo.CompareAndSwapState(ctx, change)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, err := repo.GetByID(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateInstitutionalRepReview, got.State)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, baseTime.Add(time.Hour).Equal(got.UpdatedAt))
}

func TestApplicationRepository_ContentApprovalAndList(t *testing.T) {
	db := setupDB(t)
	repo := NewApplicationRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, repo, "app-1", workflow.StateDraft)
	createApplication(t, repo, "app-2", workflow.StateDACReview)
	createApplication(t, repo, "app-3", workflow.StateClosed)

	content := entity.ApplicationContent{Project: entity.ProjectInfo{Title: "Updated"}}
	require.NoError(t, repo.UpdateContent(ctx, "app-1", content, baseTime.Add(time.Minute)))

	approvedAt := baseTime.Add(48 * time.Hour)
	require.NoError(t, repo.SetApproval(ctx, "app-2", approvedAt, approvedAt.AddDate(1, 0, 0)))

	got, err := repo.GetByID(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Content.Project.Title)

	got, err = repo.GetByID(ctx, "app-2")
	require.NoError(t, err)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	require.NotNil(t, got.ExpiresAt)

	apps, err := repo.ListByStates(ctx, []workflow.State{workflow.StateDraft, workflow.StateDACReview})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, "app-2", apps[1].ID)

	none, err := repo.ListByStates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestActionRepository_ListAndMostRecent(t *testing.T) {
	db := setupDB(t)
	apps := NewApplicationRepository(db, zap.NewNop())
	repo := NewActionRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, apps, "app-1", workflow.StateDraft)

	latest, err := repo.MostRecent(ctx, "app-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	users := []string{"applicant-1", "rep-1", "applicant-1", "dac-1"}
	for i, user := range users {
		action := &entity.ApplicationAction{
			ApplicationID: "app-1",
			UserID:        user,
			ActorRole:     entity.RoleApplicant,
			Action:        workflow.TriggerEdit,
			StateBefore:   workflow.StateDraft,
			StateAfter:    workflow.StateDraft,
			CreatedAt:     baseTime.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Append(ctx, action))
		assert.NotZero(t, action.ID)
	}

	page, total, err := repo.List(ctx, "app-1", port.ActionQuery{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "applicant-1", page[0].UserID)
	assert.Equal(t, "rep-1", page[1].UserID)

	page, total, err = repo.List(ctx, "app-1", port.ActionQuery{Descending: true})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 4)
	assert.Equal(t, "dac-1", page[0].UserID)

	page, total, err = repo.List(ctx, "app-1", port.ActionQuery{UserID: "applicant-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, page, 2)

	latest, err = repo.MostRecent(ctx, "app-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "dac-1", latest.UserID)
}

func TestRevisionRequestRepository(t *testing.T) {
	db := setupDB(t)
	apps := NewApplicationRepository(db, zap.NewNop())
	repo := NewRevisionRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, apps, "app-1", workflow.StateInstitutionalRepReview)

	latest, err := repo.GetLatest(ctx, "app-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	note := "Add the co-investigator's affiliation"
	first := &entity.RevisionRequest{
		ID:            "rr-1",
		ApplicationID: "app-1",
		ActionState:   workflow.StateInstitutionalRepReview,
		Comments:      "first",
		Applicant:     entity.SectionReview{Approved: true},
		Collaborators: entity.SectionReview{Approved: false, Notes: &note},
		CreatedAt:     baseTime,
	}
	second := &entity.RevisionRequest{
		ID:            "rr-2",
		ApplicationID: "app-1",
		ActionState:   workflow.StateDACReview,
		Comments:      "second",
		CreatedAt:     baseTime.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.GetByID(ctx, "rr-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Applicant.Approved)
	assert.False(t, got.Collaborators.Approved)
	require.NotNil(t, got.Collaborators.Notes)
	assert.Equal(t, note, *got.Collaborators.Notes)
	assert.Nil(t, got.Project.Notes)

	latest, err = repo.GetLatest(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "rr-2", latest.ID)

	all, err := repo.ListByApplication(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rr-1", all[0].ID)
	assert.Equal(t, "rr-2", all[1].ID)
}

func TestNotificationLedgerRepository_Reserve(t *testing.T) {
	db := setupDB(t)
	apps := NewApplicationRepository(db, zap.NewNop())
	repo := NewNotificationLedgerRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, apps, "app-1", workflow.StateDraft)

	newEntry := func(at time.Time) *entity.NotificationLedgerEntry {
		return &entity.NotificationLedgerEntry{
			ApplicationID:       "app-1",
			ApplicationActionID: 7,
			EmailType:           entity.EmailDraftInactive,
			RecipientAddresses:  []string{"ada@example.org"},
			ReservedAt:          at,
		}
	}
	staleBefore := func(at time.Time) time.Time { return at.Add(-time.Hour) }

	first := newEntry(baseTime)
	ok, err := repo.Reserve(ctx, first, staleBefore(baseTime))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotZero(t, first.ID)

	// Fresh PENDING is held by the first caller.
	ok, err = repo.Reserve(ctx, newEntry(baseTime.Add(time.Minute)), staleBefore(baseTime.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok)

	// FAILED is reclaimable.
	require.NoError(t, repo.MarkFailed(ctx, first.ID, "smtp down"))
	retry := newEntry(baseTime.Add(2 * time.Minute))
	ok, err = repo.Reserve(ctx, retry, staleBefore(baseTime.Add(2*time.Minute)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, retry.ID)

	// SENT is final.
	require.NoError(t, repo.MarkSent(ctx, retry.ID, baseTime.Add(3*time.Minute)))
	ok, err = repo.Reserve(ctx, newEntry(baseTime.Add(48*time.Hour)), staleBefore(baseTime.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, "app-1", 7, entity.EmailDraftInactive)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.LedgerStatusSent, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, []string{"ada@example.org"}, got.RecipientAddresses)
	require.NotNil(t, got.SentAt)

	all, err := repo.ListByApplication(ctx, "app-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationLedgerRepository_StalePendingIsReclaimed(t *testing.T) {
	db := setupDB(t)
	apps := NewApplicationRepository(db, zap.NewNop())
	repo := NewNotificationLedgerRepository(db, zap.NewNop())
	ctx := context.Background()
	createApplication(t, apps, "app-1", workflow.StateDraft)

	abandoned := &entity.NotificationLedgerEntry{
		ApplicationID: "app-1",
		EmailType:     entity.EmailDraftInactive,
		ReservedAt:    baseTime,
	}
	ok, err := repo.Reserve(ctx, abandoned, baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	later := baseTime.Add(2 * time.Hour)
	reclaim := &entity.NotificationLedgerEntry{
		ApplicationID: "app-1",
		EmailType:     entity.EmailDraftInactive,
		ReservedAt:    later,
	}
	ok, err = repo.Reserve(ctx, reclaim, later.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepositories_PersistenceErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectExec("UPDATE applications").WillReturnError(boom)
	mock.ExpectExec("INSERT INTO application_actions").WillReturnError(boom)
	mock.ExpectQuery("FROM application_actions").WillReturnError(boom)
	mock.ExpectExec("INSERT INTO notification_ledger").WillReturnError(boom)

	ctx := context.Background()

	_, err = NewApplicationRepository(db, zap.NewNop()).CompareAndSwapState(ctx, port.StateChange{ApplicationID: "a"})
	assert.ErrorIs(t, err, boom)

	err = NewActionRepository(db, zap.NewNop()).Append(ctx, &entity.ApplicationAction{ApplicationID: "a"})
	assert.ErrorIs(t, err, boom)

	_, err = NewActionRepository(db, zap.NewNop()).MostRecent(ctx, "a")
	assert.ErrorIs(t, err, boom)

	_, err = NewNotificationLedgerRepository(db, zap.NewNop()).Reserve(ctx, &entity.NotificationLedgerEntry{ApplicationID: "a"}, baseTime)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositories_UseTransactionFromContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_actions").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	tm := sqlite.NewDB(db, zap.NewNop())
	apps := NewApplicationRepository(db, zap.NewNop())
	actions := NewActionRepository(db, zap.NewNop())

	err = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := apps.CompareAndSwapState(ctx, port.StateChange{ApplicationID: "a", From: workflow.StateDraft, To: workflow.StateClosed, ExpectedVersion: 1}); err != nil {
			return err
		}
		return actions.Append(ctx, &entity.ApplicationAction{ApplicationID: "a"})
	})
	assert.ErrorContains(t, err, "constraint failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
