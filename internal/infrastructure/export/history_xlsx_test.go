package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

func TestXLSXExporter_WriteHistory(t *testing.T) {
	at := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	rrID := "rr-1"
	app := &entity.Application{
		ID:        "app-1",
		State:     workflow.StateRepRevision,
		Version:   3,
		CreatedAt: at.Add(-time.Hour),
		Content: entity.ApplicationContent{
			Project:   entity.ProjectInfo{Title: "Recurrence"},
			Applicant: entity.ApplicantInfo{Email: "ada@example.org"},
		},
	}
	actions := []*entity.ApplicationAction{
		{ID: 1, UserID: "applicant-1", ActorRole: entity.RoleApplicant, Action: workflow.TriggerSubmit,
			StateBefore: workflow.StateDraft, StateAfter: workflow.StateInstitutionalRepReview, CreatedAt: at},
		{ID: 2, UserID: "rep-1", ActorRole: entity.RoleInstitutionalRep, Action: workflow.TriggerRevisionRequest,
			StateBefore: workflow.StateInstitutionalRepReview, StateAfter: workflow.StateRepRevision,
			RevisionRequestID: &rrID, CreatedAt: at.Add(time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter(nil).WriteHistory(&buf, app, actions))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, historySheet}, f.GetSheetList())

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, historyHeader, rows[0])
	assert.Equal(t, []string{"1", "2026-04-01 09:30:00 UTC", "applicant-1", "APPLICANT", "submit", "DRAFT", "INSTITUTIONAL_REP_REVIEW"}, rows[1][:7])
	assert.Equal(t, "rr-1", rows[2][7])

	state, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "REP_REVISION", state)
}

func TestXLSXExporter_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	app := &entity.Application{ID: "app-1", State: workflow.StateDraft}

	require.NoError(t, NewXLSXExporter(time.UTC).WriteHistory(&buf, app, nil))
	assert.NotZero(t, buf.Len())
}
