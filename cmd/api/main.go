package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pagelink/internal/cache"
	"pagelink/internal/config"
	"pagelink/internal/database"
	"pagelink/internal/database/migration"
	handlers "pagelink/internal/http/handler"
	"pagelink/internal/http/middleware"
	"pagelink/internal/otel"
	"pagelink/internal/reaper"
	"pagelink/internal/repository/postgres"
	"pagelink/internal/service"
	"pagelink/internal/storage"
	"pagelink/internal/token"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing first so the DB and HTTP layers pick up the global provider
	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Redis read-through cache is optional; the service runs without it
	var pageCache cache.Cache
	if cfg.Redis.Addr != "" {
		pageCache, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	}

	// Initialize repositories and services
	pageRepo := postgres.NewPagePostgres(db)
	pageSvc := service.NewPageService(objStore, pageRepo, token.NewAlphanumeric(token.DefaultLength), pageCache, service.Config{
		BaseURL:       cfg.Upload.BaseURL,
		MaxUploadSize: cfg.Upload.MaxSizeBytes,
		CacheTTL:      time.Duration(cfg.Cache.TTLSec) * time.Second,
		CacheMaxEntry: cfg.Cache.MaxEntryBytes,
	})

	// Background reaper purges expired pages on a fixed schedule
	reaperMetrics, err := reaper.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register reaper metrics: %v", err)
	}
	pageReaper := reaper.New(pageSvc, time.Duration(cfg.ReaperIntervalSec)*time.Second, reaperMetrics)
	pageReaper.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Service-level size validation decides 413s; fiber's body limit only
		// guards against unbounded requests, so leave multipart headroom.
		BodyLimit: int(cfg.Upload.MaxSizeBytes) + 1024*1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, pageSvc)

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	pageReaper.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
