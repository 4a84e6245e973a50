// internal/newsletters/domain.go
package newsletters

import (
	"context"
	"fmt"
	"time"

	"newsletter/internal/subscriber"
	"newsletter/internal/telemetry"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// EventNewsletterIssuePublished is appended once per successful publish.
const EventNewsletterIssuePublished = "NewsletterIssuePublished"

// Issue is one newsletter edition.
type Issue struct {
	Title   string  `json:"title" validate:"required"`
	Content Content `json:"content"`
}

type Content struct {
	HTML string `json:"html" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// Validate reports missing or empty fields.
func (i Issue) Validate() error {
	return validate.Struct(i)
}

// EmailSender delivers one email. clients.EmailClient satisfies it.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient subscriber.Email, subject, htmlContent, textContent string) error
}

// EventRecorder appends lifecycle events. eventstore.EventStore satisfies it.
type EventRecorder interface {
	Record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload any) error
}

type IssuePublishedEvent struct {
	IssueID     uuid.UUID `json:"issue_id"`
	PublishedBy uuid.UUID `json:"published_by"`
	Title       string    `json:"title"`
	Delivered   int       `json:"delivered"`
	Skipped     int       `json:"skipped"`
	PublishedAt time.Time `json:"published_at"`
}

// DeliveryAbortedError stops a publish at the first subscriber that could
// not be reached. Subscribers after it were not attempted.
type DeliveryAbortedError struct {
	SubscriberID uuid.UUID
	Email        subscriber.Email
	Delivered    int
	Err          error
}

func (e *DeliveryAbortedError) Error() string {
	return fmt.Sprintf("failed to send newsletter issue to subscriber %s (%s) after %d deliveries: %v",
		e.SubscriberID, telemetry.RedactEmail(e.Email.String()), e.Delivered, e.Err)
}

func (e *DeliveryAbortedError) Unwrap() error {
	return e.Err
}
