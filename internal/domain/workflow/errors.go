package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the current state has no
	// transition for the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every candidate transition was vetoed
	ErrGuardFailed = errors.New("guard condition failed")
)
