package workflow

import "fmt"

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit          Trigger = "submit"
	TriggerEdit            Trigger = "edit"
	TriggerClose           Trigger = "close"
	TriggerRevisionRequest Trigger = "revision_request"
	TriggerApprove         Trigger = "approve"
	TriggerReject          Trigger = "reject"
	TriggerRevoked         Trigger = "revoked"
)

// AllTriggers lists every trigger in declaration order
var AllTriggers = []Trigger{
	TriggerSubmit,
	TriggerEdit,
	TriggerClose,
	TriggerRevisionRequest,
	TriggerApprove,
	TriggerReject,
	TriggerRevoked,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger is one of the known events
func (t Trigger) IsValid() bool {
	for _, known := range AllTriggers {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTrigger converts a raw value into a Trigger
func ParseTrigger(raw string) (Trigger, error) {
	t := Trigger(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, raw)
	}
	return t, nil
}
