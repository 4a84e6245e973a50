// internal/newsletters/implementation.go
package newsletters

import (
	"context"
	"fmt"
	"time"

	"newsletter/internal/authentication"
	"newsletter/internal/eventstore"
	"newsletter/internal/subscriber"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Delivery outcomes recorded on the newsletter.deliveries counter.
const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

type service struct {
	auth       authentication.Validator
	store      subscriber.Store
	sender     EmailSender
	events     EventRecorder
	logger     *zap.Logger
	tracer     trace.Tracer
	deliveries metric.Int64Counter
}

// NewService creates a new publish service instance.
func NewService(auth authentication.Validator, store subscriber.Store, sender EmailSender, events EventRecorder, logger *zap.Logger) (Service, error) {
	deliveries, err := otel.Meter("newsletter/newsletters").Int64Counter("newsletter.deliveries",
		metric.WithDescription("Newsletter emails by delivery outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create deliveries counter: %w", err)
	}

	return &service{
		auth:       auth,
		store:      store,
		sender:     sender,
		events:     events,
		logger:     logger.Named("publish"),
		tracer:     otel.Tracer("newsletter/newsletters"),
		deliveries: deliveries,
	}, nil
}

// PublishIssue authenticates the publisher and sends issue to every
// confirmed subscriber, one at a time. The first delivery failure aborts
// the remaining sends.
func (s *service) PublishIssue(ctx context.Context, credentials authentication.Credentials, issue Issue) error {
	ctx, span := s.tracer.Start(ctx, "newsletters.publish",
		trace.WithAttributes(attribute.String("newsletter.title", issue.Title)),
	)
	defer span.End()

	userID, err := s.auth.Validate(ctx, credentials)
	if err != nil {
		return fmt.Errorf("authenticate publisher: %w", err)
	}
	span.SetAttributes(attribute.String("publisher.id", userID.String()))

	subscribers, err := s.store.ListConfirmed(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("list confirmed subscribers: %w", err)
	}

	var delivered, skipped int
	for _, sub := range subscribers {
		if sub.Err != nil {
			skipped++
			s.count(ctx, outcomeSkipped)
			s.logger.Warn("skipping a confirmed subscriber, stored contact details are invalid",
				zap.String("subscriber_id", sub.ID.String()),
				zap.Error(sub.Err),
			)
			continue
		}

		if err := s.sender.SendEmail(ctx, sub.Email, issue.Title, issue.Content.HTML, issue.Content.Text); err != nil {
			s.count(ctx, outcomeFailed)
			aborted := &DeliveryAbortedError{
				SubscriberID: sub.ID,
				Email:        sub.Email,
				Delivered:    delivered,
				Err:          err,
			}
			span.RecordError(aborted)
			span.SetStatus(codes.Error, "delivery aborted")
			return aborted
		}
		delivered++
		s.count(ctx, outcomeSent)
	}

	span.SetAttributes(
		attribute.Int("newsletter.delivered", delivered),
		attribute.Int("newsletter.skipped", skipped),
	)

	issueID := uuid.New()
	event := IssuePublishedEvent{
		IssueID:     issueID,
		PublishedBy: userID,
		Title:       issue.Title,
		Delivered:   delivered,
		Skipped:     skipped,
		PublishedAt: time.Now().UTC(),
	}
	if err := s.events.Record(ctx, issueID, eventstore.AggregateNewsletterIssue, EventNewsletterIssuePublished, event); err != nil {
		s.logger.Error("failed to record event",
			zap.String("event_type", EventNewsletterIssuePublished),
			zap.Error(err),
		)
	}

	s.logger.Info("newsletter issue published",
		zap.String("issue_id", issueID.String()),
		zap.Int("delivered", delivered),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (s *service) count(ctx context.Context, outcome string) {
	s.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
