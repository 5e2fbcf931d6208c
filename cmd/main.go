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

	"github.com/Dosada05/esports-arena/brackets"
	"github.com/Dosada05/esports-arena/config"
	"github.com/Dosada05/esports-arena/db"
	"github.com/Dosada05/esports-arena/handlers"
	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/repositories"
	api "github.com/Dosada05/esports-arena/routes"
	"github.com/Dosada05/esports-arena/services"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/go-chi/chi/v5"
)

const backgroundTaskTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.Bool("redis_locks", cfg.RedisAddr != ""),
		slog.Bool("archive", cfg.ArchiveEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище
	var store repositories.Store
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(dbConn); err != nil {
			return err
		}
		store = repositories.NewPostgresStore(dbConn)
		logger.Info("database connection established, migrations applied")
	default:
		store = repositories.NewMemoryStore()
		logger.Warn("using in-memory storage, data is lost on restart")
	}

	// Блокировки
	var locker locks.Locker = locks.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		redisClient, err := locks.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = locks.NewRedisLocker(redisClient, cfg.LockTTL, logger)
		logger.Info("redis locks enabled", slog.String("addr", cfg.RedisAddr))
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	background := services.NewBackgroundTasks(backgroundTaskTimeout, logger)

	// Сервисы
	authService := services.NewAuthService(store, cfg.AdminUsernames, logger)
	userService := services.NewUserService(store)
	teamService := services.NewTeamService(store, locker, cfg.LockWait, cfg.TeamCapacity, logger)
	tournamentService := services.NewTournamentService(store, locker, cfg.LockWait, wsHub, logger)
	bracketService := services.NewBracketService(store, locker, cfg.LockWait, wsHub, logger)
	hallOfFameService := services.NewHallOfFameService(store, logger)

	var archiver services.BracketArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewR2Uploader(ctx, storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = services.NewBracketArchiver(tournamentService, uploader, logger)
		logger.Info("Cloudflare R2 bracket archive enabled")
	}

	stageService := services.NewStageService(store, locker, cfg.LockWait, wsHub, hallOfFameService, archiver, background, logger)
	logger.Info("Services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.JWTTTL),
		User:       handlers.NewUserHandler(userService),
		Team:       handlers.NewTeamHandler(teamService, tournamentService, bracketService),
		Tournament: handlers.NewTournamentHandler(tournamentService, bracketService, stageService),
		HallOfFame: handlers.NewHallOfFameHandler(hallOfFameService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}, cfg.JWTSecretKey, cfg.CORSAllowedOrigins)
	logger.Info("Routes configured")

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

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	background.Wait()
	logger.Info("server shutdown complete")
	return nil
}
