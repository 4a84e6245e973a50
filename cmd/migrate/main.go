// cmd/migrate/main.go
package main

import (
	"context"
	"log"

	"newsletter/internal/config"
	"newsletter/internal/storage"
	"newsletter/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	logger, err := telemetry.NewLogger("info", telemetry.FormatConsole)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("failed to load database config", zap.Error(err))
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, *cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("database is up to date", zap.String("database", cfg.Name))
}
