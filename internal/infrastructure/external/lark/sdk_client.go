package lark

import (
	"errors"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// ErrMissingCredentials is returned when the app id or secret is empty
var ErrMissingCredentials = errors.New("lark app credentials are required")

// SDKClient holds the Lark SDK client used for reminder delivery
type SDKClient struct {
	client *lark.Client
	appID  string
}

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
}

// NewSDKClient builds a client with a cached tenant token. The SDK logs at warn level
// so token refreshes stay out of the service log.
func NewSDKClient(cfg Config, logger *zap.Logger) (*SDKClient, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, ErrMissingCredentials
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelWarn),
		lark.WithEnableTokenCache(true),
	)

	logger.Info("Lark client initialized", zap.String("app_id", cfg.AppID))
	return &SDKClient{client: client, appID: cfg.AppID}, nil
}

// AppID identifies the bot that sends reminders
func (c *SDKClient) AppID() string {
	return c.appID
}
