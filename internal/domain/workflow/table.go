package workflow

import "fmt"

// Effect is the write a transition performs besides the state change and audit row
type Effect int

const (
	EffectNone Effect = iota
	// EffectSubmitContent validates the content and stores it when the caller supplied it
	EffectSubmitContent
	// EffectStoreContent stores caller-supplied content without validation
	EffectStoreContent
	// EffectRecordRevision writes a revision request row
	EffectRecordRevision
	// EffectGrantAccess sets the approval time and access expiry
	EffectGrantAccess
)

// Transition is the outcome of a permitted (state, trigger) pair
type Transition struct {
	To     State
	Effect Effect
}

// StoresContent reports whether the transition accepts replacement content
func (t Transition) StoresContent() bool {
	return t.Effect == EffectSubmitContent || t.Effect == EffectStoreContent
}

type transitionKey struct {
	from    State
	trigger Trigger
}

// transitions is the complete set of permitted moves. Pairs absent from the table are rejected.
var transitions = map[transitionKey]Transition{
	{StateDraft, TriggerSubmit}: {To: StateInstitutionalRepReview, Effect: EffectSubmitContent},
	{StateDraft, TriggerEdit}:   {To: StateDraft, Effect: EffectStoreContent},
	{StateDraft, TriggerClose}:  {To: StateClosed},

	{StateInstitutionalRepReview, TriggerClose}:           {To: StateClosed},
	{StateInstitutionalRepReview, TriggerEdit}:            {To: StateDraft, Effect: EffectStoreContent},
	{StateInstitutionalRepReview, TriggerRevisionRequest}: {To: StateRepRevision, Effect: EffectRecordRevision},
	{StateInstitutionalRepReview, TriggerSubmit}:          {To: StateDACReview, Effect: EffectSubmitContent},

	{StateRepRevision, TriggerSubmit}: {To: StateInstitutionalRepReview, Effect: EffectSubmitContent},

	{StateDACReview, TriggerApprove}:         {To: StateApproved, Effect: EffectGrantAccess},
	{StateDACReview, TriggerClose}:           {To: StateClosed},
	{StateDACReview, TriggerEdit}:            {To: StateDraft, Effect: EffectStoreContent},
	{StateDACReview, TriggerRevisionRequest}: {To: StateDACRevisionsRequested, Effect: EffectRecordRevision},
	{StateDACReview, TriggerReject}:          {To: StateRejected},

	{StateDACRevisionsRequested, TriggerSubmit}: {To: StateDACReview, Effect: EffectSubmitContent},

	{StateApproved, TriggerRevoked}: {To: StateRevoked},
}

// Lookup returns the table entry for (from, trigger)
func Lookup(from State, trigger Trigger) (Transition, bool) {
	t, ok := transitions[transitionKey{from: from, trigger: trigger}]
	return t, ok
}

// Resolve returns the table entry for trigger fired in current, or ErrInvalidTransition
func Resolve(current State, trigger Trigger) (Transition, error) {
	if !current.IsValid() {
		return Transition{}, fmt.Errorf("%w: %s", ErrInvalidState, current)
	}
	t, ok := Lookup(current, trigger)
	if !ok {
		return Transition{}, fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, current)
	}
	return t, nil
}

// Apply computes the next state for trigger fired in current
func Apply(current State, trigger Trigger) (State, error) {
	t, err := Resolve(current, trigger)
	if err != nil {
		return "", err
	}
	return t.To, nil
}

// PermittedTriggers returns the triggers that have an entry for state, in declaration order
func PermittedTriggers(state State) []Trigger {
	var permitted []Trigger
	for _, trigger := range AllTriggers {
		if _, ok := Lookup(state, trigger); ok {
			permitted = append(permitted, trigger)
		}
	}
	return permitted
}
