package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/handlers"
	"catalog/internal/metrics"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/validation"
	zaplogger "catalog/pkg/logger"
	"catalog/pkg/rabbitmq"
)

// App bundles the HTTP app with the resources it owns.
type App struct {
	Fiber   *fiber.App
	Catalog *services.CatalogService
	Auth    *services.AuthService

	db      *gorm.DB
	mq      *rabbitmq.Client
	limiter *middleware.RateLimiter
	log     *zap.Logger
}

// NewApp connects every dependency named in cfg and registers the routes.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}

	a := &App{db: db, log: log}

	// A nil *rabbitmq.Client must not end up inside the interface.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: services.CatalogExchange,
			Queue:    cfg.EventsQueue,
		}, log)
		if err != nil {
			database.Close(db)
			return nil, err
		}
		publisher = a.mq
	} else {
		log.Warn("RABBITMQ_URL is empty, catalog events are disabled")
	}

	bookRepo := repositories.NewGORMBookRepository(db, log)
	userRepo := repositories.NewGORMUserRepository(db)

	a.Catalog = services.NewCatalogService(bookRepo, publisher, log)
	a.Auth = services.NewAuthService(userRepo, cfg.JWTSecret, log)

	validate := validation.New()
	bookHandler := handlers.NewBookHandler(a.Catalog, validate, log)
	authHandler := handlers.NewAuthHandler(a.Auth, validate, log)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	// Prometheus names allow underscores but not dashes.
	m := metrics.New(strings.ReplaceAll(cfg.ServiceName, "-", "_"))

	app := fiber.New(fiber.Config{AppName: cfg.ServiceName})
	app.Use(logger.New())
	app.Use(m.Middleware())

	app.Get("/health", a.handleHealth)
	app.Get("/metrics", m.Handler())

	apiV1 := app.Group("/api/v1", a.limiter.Handler())
	authHandler.RegisterRoutes(apiV1)
	bookHandler.RegisterRoutes(apiV1, middleware.AuthRequired(a.Auth, log))

	a.Fiber = app
	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	if err := database.Ping(c.UserContext(), a.db); err != nil {
		a.log.Error("Database health check failed", zap.Error(err))
		status["status"] = "unhealthy"
		status["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	status["database"] = "connected"

	if a.mq != nil {
		if !a.mq.IsHealthy() {
			status["status"] = "unhealthy"
			status["rabbitmq"] = "disconnected"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		status["rabbitmq"] = "connected"
	}

	return c.JSON(status)
}

// Close releases everything NewApp opened.
func (a *App) Close() error {
	a.limiter.Stop()

	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	errs = append(errs, database.Close(a.db))
	return errors.Join(errs...)
}

// seedBooks loads a couple of demo books, skipping any already present.
func seedBooks(ctx context.Context, catalog *services.CatalogService, log *zap.Logger) {
	books := []models.Book{
		models.NewBook("1234567891", "Northern Lights", "Lyra Silverstar", 9.90, "Polarsophia"),
		models.NewBook("1234567892", "Polar Journey", "Iorek Polarson", 12.90, "Polarsophia"),
	}

	for _, book := range books {
		_, err := catalog.AddBookToCatalog(ctx, book)
		var exists *services.BookAlreadyExistsError
		switch {
		case errors.As(err, &exists):
			log.Debug("Demo book already present", zap.String("isbn", book.ISBN))
		case err != nil:
			log.Error("Error seeding book", zap.String("isbn", book.ISBN), zap.Error(err))
		default:
			log.Info("Seeded book", zap.String("isbn", book.ISBN), zap.String("title", book.Title))
		}
	}
}

// logCatalogEvent is the audit consumer: it only records what happened.
func logCatalogEvent(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.CatalogEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// Malformed messages would be requeued forever; drop them.
			log.Warn("Discarding malformed catalog event", zap.Error(err))
			return nil
		}
		log.Info("Catalog event received",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.String("isbn", event.ISBN),
		)
		return nil
	}
}

func main() {
	cfg := config.Load()

	zlog, err := zaplogger.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	app, err := NewApp(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize application", zap.Error(err))
	}

	if cfg.SeedTestData {
		seedBooks(context.Background(), app.Catalog, zlog)
	}

	if app.mq != nil && cfg.ConsumeEvents {
		if err := app.mq.ConsumeCatalogEvents(logCatalogEvent(zlog)); err != nil {
			zlog.Error("Failed to start catalog event consumer", zap.Error(err))
		}
	}

	go func() {
		zlog.Info("Starting server", zap.String("port", cfg.AppPort))
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	if err := app.Fiber.ShutdownWithTimeout(30 * time.Second); err != nil {
		zlog.Error("Error during Fiber shutdown", zap.Error(err))
	}
	if err := app.Close(); err != nil {
		zlog.Error("Error releasing resources", zap.Error(err))
	}

	zlog.Info("Server gracefully stopped")
}
