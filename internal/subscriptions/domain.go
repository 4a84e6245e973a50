package subscriptions

import (
	"context"
	"errors"
	"time"

	"newsletter/internal/subscriber"

	"github.com/google/uuid"
)

var (
	ErrRateLimited       = errors.New("subscription rate limit exceeded")
	ErrAlreadySubscribed = errors.New("email is already subscribed")
)

// Event types appended to the subscription stream.
const (
	EventSubscriberRegistered = "SubscriberRegistered"
	EventSubscriberConfirmed  = "SubscriberConfirmed"
)

// EmailSender delivers one email. clients.EmailClient satisfies it.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient subscriber.Email, subject, htmlContent, textContent string) error
}

// EventRecorder appends lifecycle events. eventstore.EventStore satisfies it.
type EventRecorder interface {
	Record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload any) error
}

// SubscriberRegisteredEvent carries the redacted address; the aggregate id
// links back to the subscription row.
type SubscriberRegisteredEvent struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

type SubscriberConfirmedEvent struct {
	ID          uuid.UUID `json:"id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
