// internal/authentication/store.go
package authentication

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrUsernameTaken = errors.New("username is already taken")

// Validator checks credentials and returns the id of the matching user.
// A mismatch is reported as ErrInvalidCredentials; anything else is an
// unexpected failure.
type Validator interface {
	Validate(ctx context.Context, credentials Credentials) (uuid.UUID, error)
}

// PostgresStore keeps publisher accounts in the users table.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a credential store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("newsletter/authentication"),
	}
}

// Validate verifies credentials against the stored Argon2id hash.
func (s *PostgresStore) Validate(ctx context.Context, credentials Credentials) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.validate",
		trace.WithAttributes(attribute.String("auth.username", credentials.Username)),
	)
	defer span.End()

	var (
		userID     uuid.UUID
		hash, salt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, password_hash, salt
		FROM users
		WHERE username = $1
	`, credentials.Username).Scan(&userID, &hash, &salt)
	found := true
	if errors.Is(err, sql.ErrNoRows) {
		found = false
		hash, salt = dummyHash, dummySalt
	} else if err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("failed to retrieve stored credentials: %w", err)
	}

	ok, err := verifyPassword(credentials.Password.Expose(), salt, hash)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to verify password hash: %w", err)
	}
	if !found {
		return uuid.Nil, fmt.Errorf("unknown username: %w", ErrInvalidCredentials)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid password: %w", ErrInvalidCredentials)
	}

	span.SetAttributes(attribute.String("auth.user_id", userID.String()))
	return userID, nil
}

// CreateUser stores a new publisher account.
func (s *PostgresStore) CreateUser(ctx context.Context, username string, password string) (uuid.UUID, error) {
	hash, salt, err := HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, password_hash, salt)
		VALUES ($1, $2, $3, $4)
	`, id, username, hash, salt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return uuid.Nil, ErrUsernameTaken
		}
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}
