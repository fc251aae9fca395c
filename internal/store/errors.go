package store

import (
	"errors"
)

var (
	// ErrEmptyTopic rejects a creation or re-generation whose topic is blank
	ErrEmptyTopic = errors.New("topic is required")

	// ErrNotFound indicates no article exists with the given id
	ErrNotFound = errors.New("article not found")

	// ErrInvalidTransition indicates a generation patch was applied to an
	// article that is not PROCESSING, or to a stale generation attempt.
	ErrInvalidTransition = errors.New("invalid article status transition")

	// ErrGenerationActive rejects a re-generation while one is still running
	ErrGenerationActive = errors.New("article generation already in progress")
)

// IsNotFound checks if an error indicates a missing article
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTransition checks if an error indicates a rejected status change
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
