package config

import (
	"time"

	"github.com/garyjia/daco-workflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// Validate must have passed, so the reminder time zone is known to load.
func (c *Config) ToContainerConfig() *container.Config {
	loc, err := c.Reminder.Location()
	if err != nil {
		loc = time.UTC
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Notification: container.NotificationConfig{
			Channel: c.Notification.Channel,
		},
		Reminder: container.ReminderConfig{
			Enabled:        c.Reminder.Enabled,
			Interval:       c.Reminder.Interval,
			ThresholdDays:  c.Reminder.ThresholdDays,
			Location:       loc,
			SendTimeout:    c.Reminder.SendTimeout,
			ReservationTTL: c.Reminder.ReservationTTL,
			DACEmails:      c.Reminder.DACEmails,
			PortalURL:      c.Reminder.PortalURL,
		},
		Workflow: container.WorkflowConfig{
			TransitionTimeout: c.Workflow.TransitionTimeout,
			AccessPeriod:      c.Workflow.AccessPeriod,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
