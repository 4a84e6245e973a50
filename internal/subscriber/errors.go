// internal/subscriber/errors.go
package subscriber

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail   = errors.New("a subscription with this email already exists")
	ErrNotFound         = errors.New("subscription not found")
	ErrAlreadyConfirmed = errors.New("subscription is already confirmed")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subscriber %s: %s", e.Field, e.Reason)
}
