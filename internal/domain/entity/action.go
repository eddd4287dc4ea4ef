package entity

import (
	"time"

	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Role is the capacity in which a user acts on an application
type Role string

const (
	RoleApplicant        Role = "APPLICANT"
	RoleInstitutionalRep Role = "INSTITUTIONAL_REP"
	RoleDAC              Role = "DAC"
	RoleSystem           Role = "SYSTEM"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleApplicant, RoleInstitutionalRep, RoleDAC, RoleSystem:
		return true
	}
	return false
}

// Actor is the user triggering a transition
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// ApplicationAction is one row of the append-only audit log
type ApplicationAction struct {
	ID                int64            `json:"id"`
	ApplicationID     string           `json:"application_id"`
	UserID            string           `json:"user_id"`
	ActorRole         Role             `json:"actor_role"`
	Action            workflow.Trigger `json:"action"`
	StateBefore       workflow.State   `json:"state_before"`
	StateAfter        workflow.State   `json:"state_after"`
	RevisionRequestID *string          `json:"revision_request_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
