// internal/subscriber/store.go
package subscriber

import (
	"context"

	"github.com/google/uuid"
)

// Store persists subscriptions.
type Store interface {
	Create(ctx context.Context, ns NewSubscriber) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	GetByEmail(ctx context.Context, email Email) (*Subscription, error)
	Confirm(ctx context.Context, id uuid.UUID) error
	ListConfirmed(ctx context.Context) ([]ConfirmedSubscriber, error)
}
