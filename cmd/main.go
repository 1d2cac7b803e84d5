package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arenakit/tournament-engine/brackets"
	"github.com/arenakit/tournament-engine/clock"
	"github.com/arenakit/tournament-engine/config"
	"github.com/arenakit/tournament-engine/db"
	"github.com/arenakit/tournament-engine/handlers"
	"github.com/arenakit/tournament-engine/notifications"
	"github.com/arenakit/tournament-engine/repositories"
	api "github.com/arenakit/tournament-engine/routes"
	"github.com/arenakit/tournament-engine/services"
	"github.com/arenakit/tournament-engine/storage"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const migrationsSource = "file://migrations"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	if err := db.Migrate(dbConn, migrationsSource); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database ready")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// The snapshot archive is optional; without R2 credentials completed
	// tournaments simply stay in Postgres only.
	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize archive uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = services.NewArchiveService(uploader, logger)
		logger.Info("tournament archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	matchClock := clock.New()
	defer matchClock.StopAll()

	publisher := notifications.NewRedisPublisher(redisClient)
	consumer := notifications.NewRedisConsumer(redisClient, logger)
	defer consumer.Close()

	tournamentService := services.NewTournamentService(
		tournamentRepo,
		matchRepo,
		matchClock,
		publisher,
		wsHub,
		archiver,
		logger,
		cfg.MatchTimeLimit,
	)
	viewService := services.NewViewService(tournamentRepo, logger)
	logger.Info("services initialized")

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go func() {
		if err := viewService.Run(consumerCtx, consumer); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("view projection consumer stopped", slog.Any("error", err))
		}
	}()

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, viewService)
	matchHandler := handlers.NewMatchHandler(tournamentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, tournamentHandler, matchHandler, webSocketHandler, []byte(cfg.JWTSecretKey))
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
