// cmd/newsletter/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsletter/internal/authentication"
	"newsletter/internal/clients"
	"newsletter/internal/config"
	"newsletter/internal/eventstore"
	"newsletter/internal/newsletters"
	"newsletter/internal/server"
	"newsletter/internal/storage"
	"newsletter/internal/subscriber"
	"newsletter/internal/subscriptions"
	"newsletter/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "newsletter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.Application.LogLevel, cfg.Application.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush spans", zap.Error(err))
		}
	}()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := storage.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Expose(),
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	sender, err := subscriber.ParseEmail(cfg.EmailClient.SenderEmail)
	if err != nil {
		return fmt.Errorf("EMAIL_CLIENT_SENDER_EMAIL: %w", err)
	}
	emailClient := clients.NewEmailClient(cfg.EmailClient.BaseURL, sender, cfg.EmailClient.AuthorizationToken, cfg.EmailClient.Timeout)

	subscriberStore := subscriber.NewPostgresStore(db)
	events := eventstore.NewEventStore(db)

	subscriptionService := subscriptions.NewService(
		subscriberStore,
		subscriptions.NewRedisTokenStore(redisClient, cfg.Redis.TokenTTL),
		emailClient,
		events,
		logger,
		subscriptions.Options{
			BaseURL:       cfg.Application.BaseURL,
			RatePerMinute: cfg.Application.SubscribeRatePerMinute,
		},
	)
	newsletterService, err := newsletters.NewService(
		authentication.NewPostgresStore(db),
		subscriberStore,
		emailClient,
		events,
		logger,
	)
	if err != nil {
		return err
	}

	router := server.NewRouter(logger,
		subscriptions.NewHandler(subscriptionService, logger),
		newsletters.NewHandler(newsletterService, logger),
		server.Options{AllowedOrigins: cfg.Application.AllowedOrigins},
	)

	logger.Info("starting newsletter service",
		zap.Int("port", cfg.Application.Port),
		zap.String("base_url", cfg.Application.BaseURL),
		zap.String("email_api", cfg.EmailClient.BaseURL),
	)
	srv := server.New(router, logger, cfg.Application.ShutdownTimeout)
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Application.Port))
}
