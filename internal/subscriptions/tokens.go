// internal/subscriptions/tokens.go
package subscriptions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned for unknown or expired confirmation tokens.
var ErrTokenNotFound = errors.New("subscription token not found")

const (
	tokenLength    = 25
	tokenAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	tokenKeyPrefix = "subscription_token:"
)

// TokenStore maps confirmation tokens to subscriber ids.
type TokenStore interface {
	Issue(ctx context.Context, subscriberID uuid.UUID) (string, error)
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
	Revoke(ctx context.Context, token string) error
}

// RedisTokenStore keeps tokens in Redis with an expiry.
type RedisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenStore(client *redis.Client, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl}
}

func (s *RedisTokenStore) Issue(ctx context.Context, subscriberID uuid.UUID) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	ok, err := s.client.SetNX(ctx, tokenKeyPrefix+token, subscriberID.String(), s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store subscription token: %w", err)
	}
	if !ok {
		return "", errors.New("subscription token collision")
	}
	return token, nil
}

func (s *RedisTokenStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	value, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve subscription token: %w", err)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("stored subscriber id %q: %w", value, err)
	}
	return id, nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("revoke subscription token: %w", err)
	}
	return nil
}

// generateToken returns a random alphanumeric token.
func generateToken() (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, tokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate subscription token: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
