// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsletter/internal/config"

	_ "github.com/lib/pq"
)

var ErrFailedToConnect = errors.New("failed to connect to postgres")

const (
	connectAttempts = 3
	retryInterval   = time.Second
)

// Open opens a lib/pq pool and pings it, retrying with a linear backoff.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var pingErr error
	for i := range connectAttempts {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			return db, nil
		}
		if i == connectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * retryInterval):
		}
	}

	db.Close()
	return nil, errors.Join(ErrFailedToConnect, pingErr)
}
