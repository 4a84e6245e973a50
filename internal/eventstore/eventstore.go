package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrConcurrencyConflict means another event took the version being written.
var ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

// Aggregate types recorded by the service.
const (
	AggregateSubscription    = "subscription"
	AggregateNewsletterIssue = "newsletter_issue"
)

// Record gives up after this many lost races for the next version.
const recordAttempts = 3

// Event is one entry of the subscription lifecycle log.
type Event struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EventStore is an append-only event log with optimistic concurrency.
type EventStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewEventStore creates an event store over db.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("newsletter/eventstore"),
	}
}

// Record appends payload as the aggregate's next event, retrying when a
// concurrent writer takes the version first.
func (es *EventStore) Record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	for attempt := 1; ; attempt++ {
		version, err := es.GetCurrentVersion(ctx, aggregateID)
		if err != nil {
			return err
		}
		_, err = es.Append(ctx, aggregateID, aggregateType, version, eventType, data)
		if errors.Is(err, ErrConcurrencyConflict) && attempt < recordAttempts {
			continue
		}
		return err
	}
}

// Append writes one event as version expectedVersion+1 and returns its id.
// The version check and the insert are a single statement.
func (es *EventStore) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, eventType string, data json.RawMessage) (int64, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.String("event.type", eventType),
			attribute.Int("expected.version", expectedVersion),
		),
	)
	defer span.End()

	var eventID int64
	err := es.db.QueryRowContext(ctx, `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version)
		SELECT $1, $2, $3, $4, $5 + 1
		WHERE (SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1) = $5
		RETURNING id
	`, aggregateID, aggregateType, eventType, string(data), expectedVersion).Scan(&eventID)

	var pqErr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// The WHERE guard filtered the row: the aggregate has moved on.
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return 0, ErrConcurrencyConflict
	case errors.As(err, &pqErr) && pqErr.Code == "23505":
		// Unique (aggregate_id, version): another writer got there first.
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return 0, ErrConcurrencyConflict
	case err != nil:
		return 0, fmt.Errorf("insert %s event: %w", eventType, err)
	}

	span.SetAttributes(attribute.Int64("event.id", eventID))
	return eventID, nil
}

// LoadEvents returns the events of an aggregate in version order.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := es.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			eventData []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&eventData,
			&event.Version,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.EventData = eventData
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version of an aggregate, 0 if it has no events.
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	var version int
	err := es.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return version, nil
}
