// Package export renders audit history for compliance review.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
)

const (
	summarySheet = "Application"
	historySheet = "History"
	timeLayout   = "2006-01-02 15:04:05 MST"
)

var historyHeader = []string{"#", "Time", "User", "Role", "Action", "From", "To", "Revision request"}

// XLSXExporter writes an application's timeline as an Excel workbook
type XLSXExporter struct {
	location *time.Location
}

// NewXLSXExporter creates an exporter that prints times in loc
func NewXLSXExporter(loc *time.Location) *XLSXExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &XLSXExporter{location: loc}
}

// WriteHistory implements port.HistoryExporter
func (x *XLSXExporter) WriteHistory(w io.Writer, app *entity.Application, actions []*entity.ApplicationAction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]interface{}{
		{"Application", app.ID},
		{"Project", app.Content.Project.Title},
		{"Applicant", app.Content.Applicant.Email},
		{"State", app.State.String()},
		{"Version", app.Version},
		{"Created", x.format(app.CreatedAt)},
		{"Approved", x.formatPtr(app.ApprovedAt)},
		{"Expires", x.formatPtr(app.ExpiresAt)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}

	header := make([]interface{}, len(historyHeader))
	for i, h := range historyHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(historySheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, a := range actions {
		revision := ""
		if a.RevisionRequestID != nil {
			revision = *a.RevisionRequestID
		}
		row := []interface{}{
			i + 1,
			x.format(a.CreatedAt),
			a.UserID,
			string(a.ActorRole),
			a.Action.String(),
			a.StateBefore.String(),
			a.StateAfter.String(),
			revision,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write history row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(historySheet, "B", "H", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (x *XLSXExporter) format(t time.Time) string {
	return t.In(x.location).Format(timeLayout)
}

func (x *XLSXExporter) formatPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return x.format(*t)
}

var _ port.HistoryExporter = (*XLSXExporter)(nil)
