package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
)

// LogSender writes reminders to the log instead of delivering them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender for deployments without a messaging channel
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements port.NotificationSender
func (s *LogSender) Send(ctx context.Context, emailType entity.EmailType, recipient string, data port.TemplateData) error {
	body, err := Render(emailType, data)
	if err != nil {
		return fmt.Errorf("%w: %w", port.ErrSend, err)
	}

	s.logger.Info("Reminder",
		zap.String("email_type", string(emailType)),
		zap.String("recipient", recipient),
		zap.String("application_id", data.ApplicationID),
		zap.String("subject", Subject(emailType)),
		zap.String("body", body))
	return nil
}

var _ port.NotificationSender = (*LogSender)(nil)
