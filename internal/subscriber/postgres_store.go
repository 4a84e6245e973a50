// internal/subscriber/postgres_store.go
package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on the subscriptions table.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("newsletter/subscriber"),
	}
}

// Create inserts a pending subscription and returns its id.
func (s *PostgresStore) Create(ctx context.Context, ns NewSubscriber) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.create")
	defer span.End()

	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`, id, ns.Email, ns.Name.String(), time.Now().UTC(), string(StatusPendingConfirmation))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			span.SetAttributes(attribute.Bool("duplicate.email", true))
			return uuid.Nil, ErrDuplicateEmail
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert subscription")
		return uuid.Nil, fmt.Errorf("insert subscription: %w", err)
	}

	span.SetAttributes(attribute.String("subscriber.id", id.String()))
	return id, nil
}

// GetByID loads a subscription by id.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.get_by_id",
		trace.WithAttributes(attribute.String("subscriber.id", id.String())),
	)
	defer span.End()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, subscribed_at, status
		FROM subscriptions
		WHERE id = $1
	`, id)
	return scanSubscription(row)
}

// GetByEmail loads a subscription by its email address.
func (s *PostgresStore) GetByEmail(ctx context.Context, email Email) (*Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.get_by_email")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, subscribed_at, status
		FROM subscriptions
		WHERE email = $1
	`, email)
	return scanSubscription(row)
}

// Confirm transitions a pending subscription to confirmed. The UPDATE is
// guarded on the pending status so that concurrent confirmations apply once.
func (s *PostgresStore) Confirm(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "subscriber.confirm",
		trace.WithAttributes(attribute.String("subscriber.id", id.String())),
	)
	defer span.End()

	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sub.Confirm(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1
		WHERE id = $2 AND status = $3
	`, string(StatusConfirmed), id, string(StatusPendingConfirmation))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("confirm subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}
	if n == 0 {
		return ErrAlreadyConfirmed
	}
	return nil
}

// ListConfirmed returns every confirmed subscriber. Rows whose stored email
// fails ParseEmail are returned with Err set rather than failing the read.
func (s *PostgresStore) ListConfirmed(ctx context.Context) ([]ConfirmedSubscriber, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.list_confirmed")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email
		FROM subscriptions
		WHERE status = $1
		ORDER BY subscribed_at ASC, id ASC
	`, string(StatusConfirmed))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []ConfirmedSubscriber
	invalid := 0
	for rows.Next() {
		var (
			id  uuid.UUID
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan confirmed subscriber: %w", err)
		}
		email, err := ParseEmail(raw)
		if err != nil {
			invalid++
			subscribers = append(subscribers, ConfirmedSubscriber{ID: id, Err: err})
			continue
		}
		subscribers = append(subscribers, ConfirmedSubscriber{ID: id, Email: email})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed subscribers: %w", err)
	}

	span.SetAttributes(
		attribute.Int("subscribers.loaded", len(subscribers)),
		attribute.Int("subscribers.invalid", invalid),
	)
	return subscribers, nil
}

func scanSubscription(row *sql.Row) (*Subscription, error) {
	sub := &Subscription{}
	var status string
	err := row.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.SubscribedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Status = Status(status)
	return sub, nil
}
