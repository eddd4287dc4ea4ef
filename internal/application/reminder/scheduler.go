// Package reminder nudges the party holding a stalled application, once per stall window.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/application/service"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
)

// ErrRunInProgress is returned by RunOnce while another pass is active
var ErrRunInProgress = errors.New("reminder run already in progress")

// Config holds scheduler settings
type Config struct {
	Interval      time.Duration
	ThresholdDays int
	Location      *time.Location
	SendTimeout   time.Duration
	// ReservationTTL is how long a PENDING ledger entry blocks other runs
	ReservationTTL time.Duration
	DACEmails      []string
	PortalURL      string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Interval:       24 * time.Hour,
		ThresholdDays:  7,
		Location:       time.UTC,
		SendTimeout:    30 * time.Second,
		ReservationTTL: time.Hour,
	}
}

// RunSummary counts what one pass did
type RunSummary struct {
	Scanned    int `json:"scanned"`
	NotDue     int `json:"not_due"`
	NoRule     int `json:"no_rule"`
	Duplicates int `json:"duplicates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeNoRule
	outcomeDuplicate
	outcomeSent
	outcomeFailed
)

// Scheduler periodically sends reminders for stalled applications
type Scheduler struct {
	config Config

	appRepo   port.ApplicationRepository
	auditLog  service.AuditLogService
	revisions service.RevisionService
	ledger    port.NotificationLedgerRepository
	sender    port.NotificationSender
	now       func() time.Time
	logger    *zap.Logger

	runMu sync.Mutex

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastRun   RunSummary
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the scheduler's time source
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a new reminder scheduler
func NewScheduler(
	config Config,
	appRepo port.ApplicationRepository,
	auditLog service.AuditLogService,
	revisions service.RevisionService,
	ledger port.NotificationLedgerRepository,
	sender port.NotificationSender,
	logger *zap.Logger,
	opts ...Option,
) *Scheduler {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.ThresholdDays <= 0 {
		config.ThresholdDays = defaults.ThresholdDays
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaults.SendTimeout
	}
	if config.ReservationTTL <= 0 {
		config.ReservationTTL = defaults.ReservationTTL
	}

	s := &Scheduler{
		config:    config,
		appRepo:   appRepo,
		auditLog:  auditLog,
		revisions: revisions,
		ledger:    ledger,
		sender:    sender,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one pass immediately and then one per interval until Stop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	s.logger.Info("ReminderScheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("threshold_days", s.config.ThresholdDays),
		zap.String("timezone", s.config.Location.String()))

	go s.loop(ctx, s.done)

	return nil
}

// Stop cancels the loop and waits for an in-flight pass to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("ReminderScheduler stopped")
	return nil
}

// Name returns the worker name for identification
func (s *Scheduler) Name() string {
	return "ReminderScheduler"
}

// LastRun returns the summary of the most recent completed pass
func (s *Scheduler) LastRun() RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary, err := s.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Reminder pass failed", zap.Error(err))
		return
	}
	s.logger.Info("Reminder pass completed",
		zap.Int("scanned", summary.Scanned),
		zap.Int("sent", summary.Sent),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed))
}

// RunOnce inspects every actionable application and sends due reminders.
// Per-application failures are logged and counted, not returned.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	if !s.runMu.TryLock() {
		return RunSummary{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()

	var summary RunSummary

	apps, err := s.appRepo.ListByStates(ctx, ActionableStates)
	if err != nil {
		return summary, fmt.Errorf("failed to list actionable applications: %w", err)
	}

	now := s.now()
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Scanned++
		switch s.processApplication(ctx, app, now) {
		case outcomeNotDue:
			summary.NotDue++
		case outcomeNoRule:
			summary.NoRule++
		case outcomeDuplicate:
			summary.Duplicates++
		case outcomeSent:
			summary.Sent++
		case outcomeFailed:
			summary.Failed++
		}
	}

	lastRunTimestamp.SetToCurrentTime()
	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	return summary, nil
}

func (s *Scheduler) processApplication(ctx context.Context, app *entity.Application, now time.Time) outcome {
	log := s.logger.With(zap.String("application_id", app.ID), zap.String("state", app.State.String()))

	last, err := s.auditLog.MostRecentAction(ctx, app.ID)
	if err != nil {
		log.Error("Failed to load most recent action", zap.Error(err))
		return outcomeFailed
	}

	anchor := app.CreatedAt
	var actionID int64
	lastActor := entity.RoleApplicant
	if last != nil {
		anchor = last.CreatedAt
		actionID = last.ID
		lastActor = last.ActorRole
	}

	elapsed := ElapsedDays(anchor, now, s.config.Location)
	if elapsed <= s.config.ThresholdDays {
		return outcomeNotDue
	}

	rule, ok := LookupRule(app.State, lastActor)
	if !ok {
		return outcomeNoRule
	}
	emailType := string(rule.EmailType)

	recipients := s.recipients(app, rule.Recipient)
	if len(recipients) == 0 {
		log.Error("No recipient address for reminder",
			zap.String("email_type", emailType),
			zap.String("recipient_role", string(rule.Recipient)))
		dispatchTotal.WithLabelValues(emailType, resultFailed).Inc()
		return outcomeFailed
	}

	entry := &entity.NotificationLedgerEntry{
		ApplicationID:       app.ID,
		ApplicationActionID: actionID,
		EmailType:           rule.EmailType,
		RecipientAddresses:  recipients,
		Status:              entity.LedgerStatusPending,
		ReservedAt:          now,
	}
	reserved, err := s.ledger.Reserve(ctx, entry, now.Add(-s.config.ReservationTTL))
	if err != nil {
		log.Error("Failed to reserve reminder", zap.String("email_type", emailType), zap.Error(err))
		dispatchTotal.WithLabelValues(emailType, resultFailed).Inc()
		return outcomeFailed
	}
	if !reserved {
		dispatchTotal.WithLabelValues(emailType, resultDuplicate).Inc()
		return outcomeDuplicate
	}

	data := port.TemplateData{
		ApplicationID: app.ID,
		ProjectTitle:  app.Content.Project.Title,
		State:         app.State,
		ElapsedDays:   elapsed,
		RecipientRole: rule.Recipient,
		PortalURL:     s.config.PortalURL,
	}
	if rule.EmailType == entity.EmailRepRevisionsOutstanding || rule.EmailType == entity.EmailDACRevisionsOutstanding {
		if rr, err := s.revisions.LatestFor(ctx, app.ID); err != nil {
			log.Error("Failed to load revision request", zap.Error(err))
		} else if rr != nil {
			data.SectionsNeedingWork = rr.SectionsNeedingWork()
		}
	}

	// The send and its ledger update finish even if the pass is cancelled meanwhile.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.SendTimeout)
	defer cancel()

	var sendErrs []error
	for _, recipient := range recipients {
		if err := s.sender.Send(sendCtx, rule.EmailType, recipient, data); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("%s: %w", recipient, err))
		}
	}

	if err := errors.Join(sendErrs...); err != nil {
		log.Error("Failed to send reminder", zap.String("email_type", emailType), zap.Error(err))
		if markErr := s.ledger.MarkFailed(sendCtx, entry.ID, err.Error()); markErr != nil {
			log.Error("Failed to mark reminder failed", zap.Int64("ledger_id", entry.ID), zap.Error(markErr))
		}
		dispatchTotal.WithLabelValues(emailType, resultFailed).Inc()
		return outcomeFailed
	}

	if err := s.ledger.MarkSent(sendCtx, entry.ID, s.now()); err != nil {
		log.Error("Failed to mark reminder sent", zap.Int64("ledger_id", entry.ID), zap.Error(err))
	}
	dispatchTotal.WithLabelValues(emailType, resultSent).Inc()

	log.Info("Reminder sent",
		zap.String("email_type", emailType),
		zap.Int("elapsed_days", elapsed),
		zap.Strings("recipients", recipients))
	return outcomeSent
}

func (s *Scheduler) recipients(app *entity.Application, role entity.Role) []string {
	switch role {
	case entity.RoleApplicant:
		if app.Content.Applicant.Email != "" {
			return []string{app.Content.Applicant.Email}
		}
	case entity.RoleInstitutionalRep:
		if app.Content.Representative.Email != "" {
			return []string{app.Content.Representative.Email}
		}
	case entity.RoleDAC:
		return append([]string(nil), s.config.DACEmails...)
	}
	return nil
}
