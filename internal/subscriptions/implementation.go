// internal/subscriptions/implementation.go
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"newsletter/internal/eventstore"
	"newsletter/internal/subscriber"
	"newsletter/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const confirmationSubject = "Welcome!"

// Options configures the intake service.
type Options struct {
	// BaseURL is the public address confirmation links point at.
	BaseURL string
	// RatePerMinute bounds accepted subscription requests.
	RatePerMinute int
}

// service implements the Service interface.
type service struct {
	store       subscriber.Store
	tokens      TokenStore
	sender      EmailSender
	events      EventRecorder
	logger      *zap.Logger
	rateLimiter *rate.Limiter
	baseURL     string
	tracer      trace.Tracer
}

// NewService creates a new subscription service instance.
func NewService(store subscriber.Store, tokens TokenStore, sender EmailSender, events EventRecorder, logger *zap.Logger, opts Options) Service {
	perMinute := max(opts.RatePerMinute, 1)
	return &service{
		store:       store,
		tokens:      tokens,
		sender:      sender,
		events:      events,
		logger:      logger.Named("subscriptions"),
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		tracer:      otel.Tracer("newsletter/subscriptions"),
	}
}

// Subscribe stores a pending subscription and emails a confirmation link.
// A pending duplicate gets a fresh link; a confirmed one is rejected.
func (s *service) Subscribe(ctx context.Context, ns subscriber.NewSubscriber) (uuid.UUID, error) {
	if !s.rateLimiter.Allow() {
		return uuid.Nil, ErrRateLimited
	}

	ctx, span := s.tracer.Start(ctx, "subscriptions.subscribe")
	defer span.End()

	id, err := s.store.Create(ctx, ns)
	switch {
	case err == nil:
		s.record(ctx, id, EventSubscriberRegistered, SubscriberRegisteredEvent{
			ID:           id,
			Email:        telemetry.RedactEmail(ns.Email.String()),
			Name:         ns.Name.String(),
			RegisteredAt: time.Now().UTC(),
		})
	case errors.Is(err, subscriber.ErrDuplicateEmail):
		existing, lookupErr := s.store.GetByEmail(ctx, ns.Email)
		if lookupErr != nil {
			return s.fail(span, fmt.Errorf("load existing subscription: %w", lookupErr))
		}
		if existing.IsConfirmed() {
			return uuid.Nil, ErrAlreadySubscribed
		}
		id = existing.ID
		s.logger.Info("resending confirmation to pending subscriber",
			zap.String("subscriber_id", id.String()),
			telemetry.Email("email", ns.Email),
		)
	default:
		return s.fail(span, fmt.Errorf("save new subscriber: %w", err))
	}
	span.SetAttributes(attribute.String("subscriber.id", id.String()))

	token, err := s.tokens.Issue(ctx, id)
	if err != nil {
		return s.fail(span, fmt.Errorf("issue confirmation token: %w", err))
	}

	if err := s.sendConfirmation(ctx, ns.Email, token); err != nil {
		return s.fail(span, fmt.Errorf("send confirmation email: %w", err))
	}
	return id, nil
}

// Confirm marks the subscription behind token as confirmed. Confirming twice
// is not an error.
func (s *service) Confirm(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "subscriptions.confirm")
	defer span.End()

	id, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("subscriber.id", id.String()))

	err = s.store.Confirm(ctx, id)
	switch {
	case err == nil:
		s.record(ctx, id, EventSubscriberConfirmed, SubscriberConfirmedEvent{
			ID:          id,
			ConfirmedAt: time.Now().UTC(),
		})
	case errors.Is(err, subscriber.ErrAlreadyConfirmed):
	case errors.Is(err, subscriber.ErrNotFound):
		return fmt.Errorf("%w: subscriber %s no longer exists", ErrTokenNotFound, id)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("confirm subscriber %s: %w", id, err)
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("failed to revoke confirmation token", zap.Error(err))
	}
	return nil
}

func (s *service) sendConfirmation(ctx context.Context, recipient subscriber.Email, token string) error {
	link := s.confirmationLink(token)
	html := fmt.Sprintf("Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.", link)
	text := fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.sender.SendEmail(ctx, recipient, confirmationSubject, html, text)
}

func (s *service) confirmationLink(token string) string {
	return s.baseURL + "/subscriptions/confirm?" + url.Values{"subscription_token": {token}}.Encode()
}

// record appends an audit event. The event log never fails a request.
func (s *service) record(ctx context.Context, id uuid.UUID, eventType string, payload any) {
	if err := s.events.Record(ctx, id, eventstore.AggregateSubscription, eventType, payload); err != nil {
		s.logger.Error("failed to record event",
			zap.String("event_type", eventType),
			zap.String("subscriber_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *service) fail(span trace.Span, err error) (uuid.UUID, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return uuid.Nil, err
}
