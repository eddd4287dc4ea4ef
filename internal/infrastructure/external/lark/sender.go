package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/infrastructure/notify"
)

const (
	receiveIDTypeEmail = "email"
	msgTypePost        = "post"
)

// messageCreator is the slice of the IM API the sender needs
type messageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// Sender delivers reminders as Lark IM post messages addressed by email
type Sender struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewSender creates a new Lark reminder sender
func NewSender(sdkClient *SDKClient, logger *zap.Logger) *Sender {
	return &Sender{
		messages: sdkClient.client.Im.Message,
		logger:   logger.With(zap.String("app_id", sdkClient.AppID())),
	}
}

type postText struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string       `json:"title"`
	Content [][]postText `json:"content"`
}

// Send implements port.NotificationSender
func (s *Sender) Send(ctx context.Context, emailType entity.EmailType, recipient string, data port.TemplateData) error {
	if recipient == "" {
		return fmt.Errorf("%w: recipient cannot be empty", port.ErrSend)
	}

	body, err := notify.Render(emailType, data)
	if err != nil {
		return fmt.Errorf("%w: %w", port.ErrSend, err)
	}

	content, err := json.Marshal(map[string]postBody{
		"en_us": {
			Title:   notify.Subject(emailType),
			Content: [][]postText{{{Tag: "text", Text: body}}},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal message: %w", port.ErrSend, err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(recipient).
			MsgType(msgTypePost).
			Content(string(content)).
			Build()).
		Build()

	resp, err := s.messages.Create(ctx, req)
	if err != nil {
		s.logger.Error("Failed to send message",
			zap.String("recipient", recipient),
			zap.String("email_type", string(emailType)),
			zap.Error(err))
		return fmt.Errorf("%w: %w", port.ErrSend, err)
	}

	if !resp.Success() {
		s.logger.Error("API returned failure",
			zap.String("recipient", recipient),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("%w: API error: code=%d, msg=%s", port.ErrSend, resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	s.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("recipient", recipient),
		zap.String("application_id", data.ApplicationID))

	return nil
}

var _ port.NotificationSender = (*Sender)(nil)
