package recurrence

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound indicates the referenced task does not exist
	ErrTaskNotFound = errors.New("task not found")
	// ErrPatternNotFound indicates no recurrence pattern exists for the task
	ErrPatternNotFound = errors.New("no recurrence configured")
	// ErrPatternExists indicates the task already has a recurrence pattern
	ErrPatternExists = errors.New("task is already recurring")
	// ErrDataIntegrity indicates the scheduler hit state that should be
	// impossible, such as a pattern whose owning task is gone. Not
	// recovered locally; callers surface it as an alert-worthy failure.
	ErrDataIntegrity = errors.New("data integrity fault")
)

// ValidationError reports a rule field that violates its constraints.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
