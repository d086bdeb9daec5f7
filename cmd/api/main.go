package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"docprocessor/docs"
	"docprocessor/internal/config"
	"docprocessor/internal/database"
	"docprocessor/internal/database/migration"
	handlers "docprocessor/internal/http/handler"
	"docprocessor/internal/http/middleware"
	"docprocessor/internal/logger"
	"docprocessor/internal/otel"
	"docprocessor/internal/repository"
	"docprocessor/internal/repository/gormrepo"
	"docprocessor/internal/repository/postgres"
	"docprocessor/internal/service"
	"docprocessor/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Document Processor API
// @version 1.0
// @description Document metadata persistence over dps_dbo.documents.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Environment, cfg.Log.Level, cfg.Log.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server_exit", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			return err
		}
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	docRepo, err := newDocumentRepository(cfg.RepositoryDriver, db)
	if err != nil {
		return err
	}
	log.Info("repository_ready", zap.String("component", "repository"), zap.String("driver", cfg.RepositoryDriver))
	docSvc := service.NewDocumentService(objStore, docRepo, cfg.MinIO.PresignExpiry())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.Database.Name),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get(middleware.MetricsPath, middleware.MetricsHandler(reg))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, docSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warn("http_shutdown_failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("http_listen", zap.String("component", "http"), zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

// newDocumentRepository selects the persistence backend. Both map the same table and columns.
func newDocumentRepository(driver string, db *sql.DB) (repository.DocumentRepository, error) {
	switch driver {
	case config.DriverSQL:
		return postgres.NewDocumentPostgres(db), nil
	case config.DriverGorm:
		gdb, err := gormrepo.Open(db, gormlogger.Warn)
		if err != nil {
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		return gormrepo.NewDocumentGorm(gdb), nil
	default:
		return nil, fmt.Errorf("unknown repository driver %q", driver)
	}
}
