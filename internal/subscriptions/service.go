// internal/subscriptions/service.go
package subscriptions

import (
	"context"

	"newsletter/internal/subscriber"

	"github.com/google/uuid"
)

// Service defines the interface for the subscription intake service.
type Service interface {
	Subscribe(ctx context.Context, ns subscriber.NewSubscriber) (uuid.UUID, error)
	Confirm(ctx context.Context, token string) error
}
