package entity

import "time"

// EmailType identifies a reminder template
type EmailType string

const (
	EmailDraftInactive           EmailType = "DRAFT_INACTIVE"
	EmailRepReviewPending        EmailType = "REP_REVIEW_PENDING"
	EmailRepRevisionsOutstanding EmailType = "REP_REVISIONS_OUTSTANDING"
	EmailDACReviewPending        EmailType = "DAC_REVIEW_PENDING"
	EmailDACRevisionsOutstanding EmailType = "DAC_REVISIONS_OUTSTANDING"
)

// LedgerStatus is the delivery status of a ledger entry
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "PENDING"
	LedgerStatusSent    LedgerStatus = "SENT"
	LedgerStatusFailed  LedgerStatus = "FAILED"
)

// NotificationLedgerEntry is the idempotency record for one reminder.
// (ApplicationID, ApplicationActionID, EmailType) is unique; ApplicationActionID is 0
// when the stall window starts at application creation.
type NotificationLedgerEntry struct {
	ID                  int64        `json:"id"`
	ApplicationID       string       `json:"application_id"`
	ApplicationActionID int64        `json:"application_action_id"`
	EmailType           EmailType    `json:"email_type"`
	RecipientAddresses  []string     `json:"recipient_addresses"`
	Status              LedgerStatus `json:"status"`
	ErrorMessage        string       `json:"error_message,omitempty"`
	ReservedAt          time.Time    `json:"reserved_at"`
	SentAt              *time.Time   `json:"sent_at,omitempty"`
}
