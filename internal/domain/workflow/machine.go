package workflow

// StateMachine tracks a current state and validates transitions against the table
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
}

// NewStateMachine returns a machine positioned at initial
func NewStateMachine(initial State) StateMachine {
	return &stateMachine{current: initial}
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := Lookup(m.current, trigger)
	return ok
}

func (m *stateMachine) Fire(trigger Trigger) error {
	next, err := Apply(m.current, trigger)
	if err != nil {
		return err
	}
	m.current = next
	return nil
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	return PermittedTriggers(m.current)
}
