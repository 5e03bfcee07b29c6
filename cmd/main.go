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

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/config"
	"github.com/aanujkhurana/AAA-SportsTournament/db"
	"github.com/aanujkhurana/AAA-SportsTournament/handlers"
	"github.com/aanujkhurana/AAA-SportsTournament/middleware"
	"github.com/aanujkhurana/AAA-SportsTournament/repositories"
	api "github.com/aanujkhurana/AAA-SportsTournament/routes"
	"github.com/aanujkhurana/AAA-SportsTournament/scheduler"
	"github.com/aanujkhurana/AAA-SportsTournament/services"
	"github.com/aanujkhurana/AAA-SportsTournament/storage"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sentry
	reporter := services.NewLogReporter(logger)
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		reporter = services.NewSentryReporter(logger)
		logger.Info("sentry reporting enabled")
	}

	// Подключение к базе данных
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
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		return err
	}
	logger.Info("database migrations applied")

	// WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Уведомления: локальный hub или Redis для нескольких инстансов
	var notifier services.Notifier = services.NewHubNotifier(wsHub)
	if cfg.RedisURL != "" {
		redisClient, err := db.ConnectRedis(cfg.RedisURL, 2*time.Second)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		notifier = services.NewRedisNotifier(redisClient, cfg.EventsChannel, logger)
		go runRelay(ctx, redisClient, cfg.EventsChannel, wsHub, logger)
		logger.Info("redis event fan-out enabled", slog.String("channel", cfg.EventsChannel))
	}

	// Архив завершённых сеток в Cloudflare R2
	var archiver services.BracketArchiver
	if cfg.R2.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
			Endpoint:        cfg.R2.Endpoint,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = services.NewStorageArchiver(uploader)
		logger.Info("Cloudflare R2 bracket archive enabled")
	}

	// Инициализация репозиториев
	tx := repositories.NewTransactor(dbConn, logger)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresTournamentStandingRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	opts := services.ServiceOptions{
		Schedule: brackets.ScheduleOptions{
			MatchesPerDay: cfg.MatchesPerDay,
			SlotInterval:  cfg.MatchSlotInterval,
		},
		Timeout:  cfg.OperationTimeout,
		Notifier: notifier,
		Reporter: reporter,
		Archiver: archiver,
		Locks:    services.NewTournamentLocks(),
		Logger:   logger,
	}
	tournamentService := services.NewTournamentService(tx, tournamentRepo, participantRepo, matchRepo, standingRepo, opts)
	bracketService := services.NewBracketService(tx, tournamentRepo, participantRepo, matchRepo, standingRepo, opts)
	matchService := services.NewMatchService(tx, tournamentRepo, participantRepo, matchRepo, standingRepo, opts)
	participantService := services.NewParticipantService(tx, tournamentRepo, participantRepo, opts)
	standingsService := services.NewStandingsService(tournamentRepo, participantRepo, matchRepo, standingRepo)
	logger.Info("Services initialized")

	// Планировщик статусов турниров
	statusScheduler, err := scheduler.New(cfg.StatusCron, tournamentService, logger)
	if err != nil {
		return err
	}
	statusScheduler.Start()

	// Инициализация обработчиков HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Bracket:     handlers.NewBracketHandler(bracketService, standingsService, tournamentService),
		Match:       handlers.NewMatchHandler(matchService, tournamentService),
		Participant: handlers.NewParticipantHandler(participantService, tournamentService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    newRateLimiter(ctx, cfg),
		Logger:         logger,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	statusScheduler.Stop(shutdownCtx)
	logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

// runRelay переподписывается на канал событий, пока жив ctx.
func runRelay(ctx context.Context, client *redis.Client, channel string, hub *brackets.Hub, logger *slog.Logger) {
	for {
		err := services.RunRedisRelay(ctx, client, channel, hub, logger)
		if ctx.Err() != nil {
			return
		}
		logger.Error("redis relay stopped, resubscribing", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func newRateLimiter(ctx context.Context, cfg *config.Config) *middleware.RateLimiter {
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()
	return limiter
}
