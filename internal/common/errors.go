// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrCheckpointMissing = errors.New("checkpoint missing")

	// Run errors.
	ErrEngineBusy    = errors.New("engine is busy")
	ErrNoItems       = errors.New("no text items to process")
	ErrRoundsExhaust = errors.New("maximum rounds reached with unprocessed items")

	// Configuration errors.
	ErrNoPlatform    = errors.New("no platform configured")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
