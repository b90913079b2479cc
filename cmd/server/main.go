package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/api"
	"github.com/eldtechnologies/messenger/internal/api/middleware"
	"github.com/eldtechnologies/messenger/internal/config"
	"github.com/eldtechnologies/messenger/internal/notify"
	"github.com/eldtechnologies/messenger/internal/program"
	"github.com/eldtechnologies/messenger/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	ledger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("ledger unavailable")
	}
	defer ledger.Close()

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	publishers := notify.Fanout{notify.NewLogPublisher(logger)}
	if redisStore != nil {
		publishers = append(publishers, notify.NewRedisPublisher(redisStore.Client()))
	}

	prog := program.New(ledger,
		program.WithLogger(logger.With().Str("component", "program").Logger()),
		program.WithNotifier(publishers),
	)

	if cfg.GenesisFile != "" {
		if err := applyGenesis(ctx, logger, prog, cfg.GenesisFile, cfg.OperatorKey); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.GenesisFile).Msg("genesis failed")
		}
	}

	router := api.NewRouter(logger, prog, api.Options{
		Redis: redisStore,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
		AirdropEnabled: cfg.AirdropEnabled,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("store", cfg.Store).
			Uint64("rent_lamports_per_byte", cfg.RentLamportsPerByte).
			Bool("airdrop", cfg.AirdropEnabled).
			Msg("starting messenger node")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func openLedger(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Ledger, error) {
	rent := store.Rent{LamportsPerByte: cfg.RentLamportsPerByte}

	switch cfg.Store {
	case config.StorePostgres:
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations completed")
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, rent)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to PostgreSQL")
		return pg, nil

	case config.StoreSQLite:
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath, rent)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite ledger")
		return lite, nil

	default:
		logger.Warn().Msg("using in-memory ledger; state is lost on restart")
		return store.NewMemoryStore(rent), nil
	}
}
