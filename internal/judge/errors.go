package judge

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors wrap one of these so that callers can map
// them to a status with errors.Is.
var (
	ErrValidation = errors.New("invalid judge request")
	ErrPermission = errors.New("judge request not allowed")
	ErrNotFound   = errors.New("room not found")
	ErrConflict   = errors.New("room state changed")
	ErrUpstream   = errors.New("vision model unavailable")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// RetryError is returned by Client once every attempt has failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("AI judgment failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could change the outcome. Only
// model outages and transport failures qualify; a rejected request or a room
// that is gone or finished stays that way.
func retryable(err error) bool {
	for _, final := range []error{ErrValidation, ErrPermission, ErrNotFound, ErrConflict} {
		if errors.Is(err, final) {
			return false
		}
	}
	return true
}
