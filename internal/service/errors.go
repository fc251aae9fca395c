package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/article-generation-api/internal/validation"
)

var (
	// ErrShuttingDown rejects new generations once shutdown has begun
	ErrShuttingDown = errors.New("service is shutting down")

	// ErrGenerationTimeout is recorded when a generator exceeds its deadline
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationCancelled is recorded for tasks interrupted by shutdown
	ErrGenerationCancelled = errors.New("generation cancelled: shutting down")

	// ErrGeneratorPanic is recorded when a generator panics
	ErrGeneratorPanic = errors.New("generator panicked")
)

// GenerationError wraps a generator failure for one attempt. Its message
// becomes the article's error_message.
type GenerationError struct {
	ArticleID int64
	Attempt   int
	Err       error
}

func (e *GenerationError) Error() string {
	if errors.Is(e.Err, ErrGenerationTimeout) || errors.Is(e.Err, ErrGenerationCancelled) {
		return e.Err.Error()
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ValidationFailedError carries field errors for a rejected request
type ValidationFailedError struct {
	Errors []validation.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidationFailed checks if an error is a request validation failure
func IsValidationFailed(err error) bool {
	var vErr *ValidationFailedError
	return errors.As(err, &vErr)
}
