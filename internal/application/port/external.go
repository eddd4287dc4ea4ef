package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// ErrSend wraps notification transport failures
var ErrSend = errors.New("notification send failed")

// TemplateData is rendered into a reminder message
type TemplateData struct {
	ApplicationID       string
	ProjectTitle        string
	State               workflow.State
	ElapsedDays         int
	RecipientRole       entity.Role
	PortalURL           string
	SectionsNeedingWork []string
}

// NotificationSender delivers one reminder to one recipient address
type NotificationSender interface {
	Send(ctx context.Context, emailType entity.EmailType, recipient string, data TemplateData) error
}

// HistoryExporter renders an application's audit timeline into a document
type HistoryExporter interface {
	WriteHistory(w io.Writer, app *entity.Application, actions []*entity.ApplicationAction) error
}
