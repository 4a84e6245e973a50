// cmd/adduser/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"newsletter/internal/authentication"
	"newsletter/internal/config"
	"newsletter/internal/storage"
	"newsletter/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	username := flag.String("username", "", "publisher username")
	password := flag.String("password", os.Getenv("ADDUSER_PASSWORD"), "publisher password (defaults to $ADDUSER_PASSWORD)")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	userID, err := authentication.NewPostgresStore(db).CreateUser(ctx, *username, *password)
	if errors.Is(err, authentication.ErrUsernameTaken) {
		logger.Fatal("username is already taken", zap.String("username", *username))
	}
	if err != nil {
		logger.Fatal("failed to create user", zap.Error(err))
	}
	logger.Info("publisher created", zap.String("username", *username), zap.String("user_id", userID.String()))
}
