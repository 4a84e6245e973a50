// internal/subscriber/domain.go
package subscriber

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the confirmation state of a subscription.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

// NewSubscriber is a validated, not yet persisted subscriber.
type NewSubscriber struct {
	Name  Name
	Email Email
}

// FromRequest validates the raw fields of a subscription request. Both
// fields are checked and every failure is reported.
func FromRequest(name, email string) (NewSubscriber, error) {
	parsedName, nameErr := ParseName(name)
	parsedEmail, emailErr := ParseEmail(email)
	if err := errors.Join(nameErr, emailErr); err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: parsedName, Email: parsedEmail}, nil
}

// Subscription is a persisted subscriber.
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	SubscribedAt time.Time `json:"subscribed_at"`
	Status       Status    `json:"status"`
}

// IsConfirmed reports whether the subscriber completed double opt-in.
func (s *Subscription) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

// Confirm moves a pending subscription to confirmed. Confirmed is terminal.
func (s *Subscription) Confirm() error {
	if s.Status != StatusPendingConfirmation {
		return ErrAlreadyConfirmed
	}
	s.Status = StatusConfirmed
	return nil
}

// ConfirmedSubscriber is one row returned by Store.ListConfirmed. Err is set
// when the stored address no longer parses; Email is then the zero value and
// the row should be skipped.
type ConfirmedSubscriber struct {
	ID    uuid.UUID
	Email Email
	Err   error
}
