package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Notification channels
const (
	ChannelLark = "lark"
	ChannelLog  = "log"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Lark         LarkConfig         `mapstructure:"lark"`
	Notification NotificationConfig `mapstructure:"notification"`
	Reminder     ReminderConfig     `mapstructure:"reminder"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// NotificationConfig selects how reminders are delivered
type NotificationConfig struct {
	Channel string `mapstructure:"channel"`
}

// ReminderConfig holds reminder scheduler configuration
type ReminderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	ThresholdDays  int           `mapstructure:"threshold_days"`
	Timezone       string        `mapstructure:"timezone"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	ReservationTTL time.Duration `mapstructure:"reservation_ttl"`
	DACEmails      []string      `mapstructure:"dac_emails"`
	PortalURL      string        `mapstructure:"portal_url"`
}

// WorkflowConfig holds workflow engine configuration
type WorkflowConfig struct {
	TransitionTimeout time.Duration `mapstructure:"transition_timeout"`
	AccessPeriod      time.Duration `mapstructure:"access_period"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Reminder.DACEmails = splitEmails(cfg.Reminder.DACEmails)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/daco.db")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("notification.channel", ChannelLog)

	// Reminder defaults
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.interval", 24*time.Hour)
	v.SetDefault("reminder.threshold_days", 7)
	v.SetDefault("reminder.timezone", "UTC")
	v.SetDefault("reminder.send_timeout", 30*time.Second)
	v.SetDefault("reminder.reservation_ttl", time.Hour)

	// Workflow defaults
	v.SetDefault("workflow.transition_timeout", 10*time.Second)
	v.SetDefault("workflow.access_period", 365*24*time.Hour)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("reminder.dac_emails", "DACO_DAC_EMAILS")
	_ = v.BindEnv("database.path", "DACO_DATABASE_PATH")
}

// splitEmails flattens comma-separated entries, which is how DACO_DAC_EMAILS arrives
func splitEmails(in []string) []string {
	var out []string
	for _, item := range in {
		for _, addr := range strings.Split(item, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

// Location returns the reminder time zone
func (r ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminder.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Notification.Channel {
	case ChannelLog:
	case ChannelLark:
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when notification.channel is lark")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when notification.channel is lark")
		}
	default:
		return fmt.Errorf("notification.channel must be %q or %q, got %q", ChannelLark, ChannelLog, c.Notification.Channel)
	}

	if c.Reminder.Enabled {
		if c.Reminder.Interval <= 0 {
			return fmt.Errorf("reminder.interval must be positive")
		}
		if c.Reminder.ThresholdDays <= 0 {
			return fmt.Errorf("reminder.threshold_days must be positive")
		}
		if _, err := c.Reminder.Location(); err != nil {
			return err
		}
	}

	if c.Workflow.TransitionTimeout <= 0 {
		return fmt.Errorf("workflow.transition_timeout must be positive")
	}
	if c.Workflow.AccessPeriod <= 0 {
		return fmt.Errorf("workflow.access_period must be positive")
	}

	return nil
}
