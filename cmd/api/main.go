// Package main is the entrypoint for the Confcentral API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/cache"
	"github.com/confcentral/confcentral/internal/config"
	"github.com/confcentral/confcentral/internal/handler"
	"github.com/confcentral/confcentral/internal/mail"
	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/middleware"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
	"github.com/confcentral/confcentral/internal/repository/memstore"
	"github.com/confcentral/confcentral/internal/server"
	"github.com/confcentral/confcentral/internal/service"
	"github.com/confcentral/confcentral/internal/tasks"
)

// entityStore is what the services and the auth middleware need from a backend.
type entityStore interface {
	service.Store
	middleware.KeyStore
	auth.KeyStore
}

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize entity store
	var (
		store entityStore
		db    handler.HealthChecker
	)
	if cfg.UsesMemoryStore() {
		store = memstore.New()
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		defer repo.Close()
		store, db = repo, repo
		logger.Info("connected to database")
	}

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize services
	recorder := metrics.NewInMemory()
	publisher := tasks.NewPublisher(cacheClient.Client(), logger, recorder)

	profiles := service.NewProfileService(store, logger)
	services := handler.Services{
		Profiles:    profiles,
		Conferences: service.NewConferenceService(store, profiles, publisher, recorder, logger, cfg.TaskPublishTimeout),
		Ledger: service.NewLedger(store, profiles, recorder, logger, service.LedgerConfig{
			MaxAttempts: cfg.RegistrationMaxAttempts,
		}),
		Sessions: service.NewSessionService(store, profiles, publisher, recorder, logger, cfg.TaskPublishTimeout),
		Speakers: service.NewSpeakerService(store),
		Facts:    service.NewFactService(store, cacheClient, recorder, logger, cfg.FeaturedSpeakerThreshold),
	}

	if cfg.UsesMemoryStore() {
		bootstrapDevKey(ctx, store, logger)
	}

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		Services: services,
		Auth: middleware.AuthConfig{
			Logger:      logger,
			Keys:        store,
			Cache:       cacheClient,
			MinDuration: middleware.DefaultMinAuthDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:    logger,
			Limiter:   cacheClient,
			PerMinute: cfg.RateLimitPerMinute,
			Burst:     cfg.RateLimitBurst,
		},
		Metrics:       recorder,
		DB:            db,
		Cache:         cacheClient,
		MaxBodySize:   cfg.MaxRequestBodySize,
		IsDevelopment: cfg.IsDevelopment(),
	})

	// Create server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Background components register first so they stop after HTTP drains.
	if cfg.TaskWorkerEnabled {
		worker := tasks.NewWorker(cacheClient.Client(), logger, tasks.NewConsumerID(), recorder)
		worker.SetBatchSize(cfg.TaskBatchSize)
		worker.SetBlockTimeout(cfg.TaskBlockTimeout)
		worker.SetRetry(cfg.TaskMaxRetries, 0)
		worker.Handle(tasks.TypeConfirmationEmail, tasks.ConfirmationEmailHandler(newMailSender(cfg, logger), cacheClient, logger))
		worker.Handle(tasks.TypeFeaturedSpeaker, tasks.FeaturedSpeakerHandler(services.Facts))
		go runComponent(logger, "task_worker", worker.Run)
		srv.OnShutdown("task_worker", worker.Shutdown)
	}

	scheduler := tasks.NewScheduler(services.Facts, cfg.AnnouncementRefreshInterval, logger)
	go runComponent(logger, "announcement_scheduler", scheduler.Run)
	srv.OnShutdown("announcement_scheduler", scheduler.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
		"mail", cfg.MailMode,
		"task_worker", cfg.TaskWorkerEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runComponent runs a background loop and logs an unexpected exit.
func runComponent(logger *slog.Logger, name string, run func(context.Context) error) {
	if err := run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("component stopped unexpectedly", "name", name, "error", err)
	}
}

func newMailSender(cfg *config.Config, logger *slog.Logger) mail.Sender {
	if cfg.MailMode == config.MailSMTP {
		return mail.NewSMTPSender(mail.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, logger)
	}
	return mail.NewLogSender(cfg.MailFrom, logger)
}

// bootstrapDevKey issues an admin key on the in-memory store so a fresh
// process can be used without running the bootstrap script.
func bootstrapDevKey(ctx context.Context, store auth.KeyStore, logger *slog.Logger) {
	issued, err := auth.IssueKey(ctx, store, auth.IssueRequest{
		Email:  "dev@confcentral.local",
		Name:   "dev",
		Scopes: []string{model.ScopeAdmin},
		Env:    auth.EnvTest,
	})
	if err != nil {
		logger.Error("failed to bootstrap dev key", "error", err)
		return
	}
	logger.Warn("issued development API key", "key", issued.Plaintext, "user_id", issued.Key.UserID)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
