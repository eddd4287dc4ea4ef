package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the current state has no entry for the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTrigger is returned when a trigger is not one of the known events
	ErrInvalidTrigger = errors.New("invalid trigger")

	// ErrIncompleteApplication is returned when submit content fails validation
	ErrIncompleteApplication = errors.New("incomplete application")

	// ErrConcurrentModification is returned when the stored state changed after it was read
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrPersistence wraps storage layer failures
	ErrPersistence = errors.New("persistence error")

	// ErrApplicationNotFound is returned when no application exists for an id
	ErrApplicationNotFound = errors.New("application not found")

	// ErrInvalidRevisionRequest is returned when a revision request flags nothing
	ErrInvalidRevisionRequest = errors.New("invalid revision request")
)
