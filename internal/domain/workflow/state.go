package workflow

import "fmt"

// State represents a review state in the application lifecycle
type State string

const (
	StateDraft                  State = "DRAFT"
	StateInstitutionalRepReview State = "INSTITUTIONAL_REP_REVIEW"
	StateRepRevision            State = "REP_REVISION"
	StateDACReview              State = "DAC_REVIEW"
	StateDACRevisionsRequested  State = "DAC_REVISIONS_REQUESTED"
	StateRejected               State = "REJECTED"
	StateApproved               State = "APPROVED"
	StateClosed                 State = "CLOSED"
	StateRevoked                State = "REVOKED"
)

// AllStates lists every state in declaration order
var AllStates = []State{
	StateDraft,
	StateInstitutionalRepReview,
	StateRepRevision,
	StateDACReview,
	StateDACRevisionsRequested,
	StateRejected,
	StateApproved,
	StateClosed,
	StateRevoked,
}

var validStates = map[State]bool{
	StateDraft:                  true,
	StateInstitutionalRepReview: true,
	StateRepRevision:            true,
	StateDACReview:              true,
	StateDACRevisionsRequested:  true,
	StateRejected:               true,
	StateApproved:               true,
	StateClosed:                 true,
	StateRevoked:                true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateClosed:   true,
	StateRevoked:  true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// ParseState converts a raw value into a State
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
	return s, nil
}
