package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/asphalt-aid/backend/internal/apidocs"
	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/database"
	"github.com/asphalt-aid/backend/internal/handlers"
	"github.com/asphalt-aid/backend/internal/jobqueue"
	"github.com/asphalt-aid/backend/internal/logging"
	"github.com/asphalt-aid/backend/internal/middleware"
	"github.com/asphalt-aid/backend/internal/permissions"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/asphalt-aid/backend/internal/routes"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/asphalt-aid/backend/internal/severity"
	"github.com/asphalt-aid/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateUp(cfg.MigrationURL()); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Redis is optional: without it the admin analysis queue is disabled and
	// rate-limit counters stay in memory.
	var redisPing handlers.Pinger
	if err := database.ConnectRedis(cfg); err != nil {
		slog.Warn("redis unavailable, background analysis disabled", "error", err)
	} else {
		redisPing = database.PingRedis
	}

	// Media storage
	files, err := storage.New(context.Background(), cfg)
	if err != nil {
		slog.Error("media storage init failed", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	// Severity model; a missing model only degrades predictions to the default severity
	classifier := severity.NewClassifier(cfg.ModelPath, cfg.ModelMetadataPath, cfg.ONNXRuntimeLib)
	if err := classifier.Load(); err != nil {
		slog.Warn("severity model not loaded", "path", cfg.ModelPath, "error", err)
	}

	perms, err := permissions.New()
	if err != nil {
		slog.Error("permission model init failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.DB)
	reportRepo := repository.NewReportRepository(database.DB)

	// Services
	authService := services.NewAuthService(userRepo, tokenRepo, cfg)
	userService := services.NewUserService(userRepo, tokenRepo, reportRepo, files)
	reportService := services.NewReportService(reportRepo, files, classifier, services.NewContentFilter())

	var queue *jobqueue.Queue
	var adminService *services.AdminService
	if database.Redis != nil {
		queue = jobqueue.NewQueue(database.Redis, cfg.JobWorkers, cfg.JobRetryDelay)
		queue.Register(jobqueue.JobTypeAnalyzeReport, reportService.HandleAnalyzeJob)
		queue.Start()
		adminService = services.NewAdminService(reportRepo, queue)
	} else {
		adminService = services.NewAdminService(reportRepo, nil)
	}

	var limiterStorage fiber.Storage
	if database.Redis != nil {
		limiterStorage = middleware.LimiterStorage(cfg)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app; the body limit leaves room for multipart framing around the photo
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	if err := apidocs.Register(app); err != nil {
		slog.Error("api docs registration failed", "error", err)
		os.Exit(1)
	}

	// Routes
	routes.Setup(app, cfg, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Profile: handlers.NewProfileHandler(userService),
		Reports: handlers.NewReportHandler(reportService, cfg.MaxUploadBytes()),
		Admin:   handlers.NewAdminHandler(adminService),
		Health:  handlers.NewHealthHandler(database.Ping, redisPing, classifier),
	}, userRepo, perms, limiterStorage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.StorageBackend, "model_loaded", classifier.Loaded())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if queue != nil {
		queue.Stop()
	}
	classifier.Close()

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if database.Redis != nil {
		if err := database.Redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
