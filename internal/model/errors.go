package model

import "errors"

// Sentinel errors shared across packages; match with errors.Is.
var (
	// ErrInvalidState marks operations that do not apply to the current
	// timer state, like stopping a timer that never started.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation marks rejected user input.
	ErrValidation = errors.New("validation failed")
)
