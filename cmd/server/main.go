package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/database"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/logging"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/mailer"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/routes"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/services"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/storage"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/validation"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	logging.WithDatabase(pgLogHandler)

	cleanupDone := make(chan struct{})
	cleanupExited := logging.StartCleanup(db, cfg.LogRetentionDays, cleanupDone)

	// Outbound mail and image hosting fall back when not configured.
	var notifier services.Notifier
	if cfg.MailEnabled() {
		smtp, err := mailer.NewSMTPMailer(cfg)
		if err != nil {
			slog.Error("mailer setup failed", "error", err)
			os.Exit(1)
		}
		notifier = smtp
	} else {
		slog.Warn("SMTP not configured, OTPs will be logged")
		notifier = mailer.NewLogMailer(slog.Default())
	}

	var uploader services.ImageUploader
	if cfg.ImageHostEnabled() {
		s3, err := storage.NewS3Uploader(context.Background(), cfg)
		if err != nil {
			slog.Error("image host setup failed", "error", err)
			os.Exit(1)
		}
		uploader = s3
	} else {
		slog.Warn("image host not configured, listings get placeholder images")
	}

	// Services
	validate := validation.New()
	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)
	authService := services.NewAuthService(users, notifier, validate, cfg)
	itemService := services.NewItemService(items, users, uploader, validate)

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

	// Fiber app. The body limit covers a full batch of images.
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MaxImageBytes)*models.MaxImagesPerItem + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

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
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Items:  handlers.NewItemHandler(itemService, cfg.MaxImageBytes),
		Users:  handlers.NewUserHandler(authService, itemService),
		Health: handlers.NewHealthHandler(db),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	<-cleanupExited
	logging.Setup()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
