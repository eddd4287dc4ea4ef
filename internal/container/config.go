// Package container provides dependency injection and lifecycle management
// for the data access workflow service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark API configuration
	Lark LarkConfig

	// Notification channel selection
	Notification NotificationConfig

	// Reminder scheduler configuration
	Reminder ReminderConfig

	// Workflow engine configuration
	Workflow WorkflowConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string
}

// NotificationConfig selects the reminder sender.
type NotificationConfig struct {
	// Channel is "lark" or "log"
	Channel string
}

// ReminderConfig holds reminder scheduler settings.
type ReminderConfig struct {
	// Enabled registers the scheduler as a worker
	Enabled bool

	// Interval between passes
	Interval time.Duration

	// ThresholdDays of inactivity before a reminder is due
	ThresholdDays int

	// Location in which calendar days are counted
	Location *time.Location

	// SendTimeout bounds one delivery
	SendTimeout time.Duration

	// ReservationTTL after which a PENDING ledger entry can be reclaimed
	ReservationTTL time.Duration

	// DACEmails receive DAC review reminders
	DACEmails []string

	// PortalURL is linked from reminder messages
	PortalURL string
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// TransitionTimeout bounds one transition
	TransitionTimeout time.Duration

	// AccessPeriod is how long an approval grants access
	AccessPeriod time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/daco.db",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Notification: NotificationConfig{
			Channel: "log",
		},
		Reminder: ReminderConfig{
			Enabled:        true,
			Interval:       24 * time.Hour,
			ThresholdDays:  7,
			Location:       time.UTC,
			SendTimeout:    30 * time.Second,
			ReservationTTL: time.Hour,
		},
		Workflow: WorkflowConfig{
			TransitionTimeout: 10 * time.Second,
			AccessPeriod:      365 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Notification.Channel {
	case "log":
	case "lark":
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	default:
		return fmt.Errorf("unknown notification channel %q", c.Notification.Channel)
	}

	if c.Reminder.Location == nil {
		return fmt.Errorf("reminder location is required")
	}

	return nil
}
