package newsletters

import (
	"context"

	"newsletter/internal/authentication"
)

// Service publishes newsletter issues to confirmed subscribers.
type Service interface {
	PublishIssue(ctx context.Context, credentials authentication.Credentials, issue Issue) error
}
