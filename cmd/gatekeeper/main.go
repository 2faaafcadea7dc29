package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/forumhub/gatekeeper/adapters/events"
	"github.com/forumhub/gatekeeper/adapters/hasher"
	"github.com/forumhub/gatekeeper/adapters/store/postgres"
	"github.com/forumhub/gatekeeper/adapters/tokenizer"
	"github.com/forumhub/gatekeeper/config"
	"github.com/forumhub/gatekeeper/db"
	"github.com/forumhub/gatekeeper/internal/cookies"
	"github.com/forumhub/gatekeeper/internal/csrf"
	"github.com/forumhub/gatekeeper/service"
	"github.com/forumhub/gatekeeper/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("gatekeeper exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	tokenCodec, err := tokenizer.NewJWETokenizer(cfg.SigningKey, cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	issuer := csrf.NewIssuer(cfg.CSRFSecret)

	authService := service.NewAuthService(
		postgres.NewCredentialStore(pool),
		hasher.NewBcryptHasher(),
		tokenCodec,
		issuer,
		events.NewWatermillPublisher(publisher),
		logger,
		cfg.SessionTTL,
	)

	router := http.SetupRouter(
		authService,
		issuer,
		cookies.NewCodec(cfg.CookieSecret, cfg.Production()),
		logger,
		http.Options{
			Production:     cfg.Production(),
			AllowedOrigins: cfg.AllowedOrigins,
		},
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("starting server", "addr", addr, "env", cfg.Env)
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
