package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/cache"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/infrastructure/persistence"
	infraprinting "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/infrastructure/scheduler"
	"github.com/printdesk/backend/internal/infrastructure/storage"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/printdesk/backend/internal/interfaces/http/handler"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
	"github.com/printdesk/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	// OpenTelemetry; every provider is a no-op unless telemetry.enabled
	telemetryCtx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(telemetryCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(telemetryCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(telemetryCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, shutdown := range []func(context.Context) error{
			logsProvider.Shutdown, meterProvider.Shutdown, tracerProvider.Shutdown,
		} {
			if err := shutdown(ctx); err != nil {
				log.Warn("Error shutting down telemetry", zap.Error(err))
			}
		}
	}()
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	submissionMetrics, err := telemetry.NewSubmissionMetrics(meterProvider.Meter("printdesk/print"))
	if err != nil {
		log.Fatal("Failed to create submission metrics", zap.Error(err))
	}

	log.Info("Starting print service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("spooler", cfg.Spooler.Backend),
		zap.String("renderer", cfg.Renderer.Backend),
	)

	// Document registry
	db, err := persistence.NewDatabase(&cfg.Database, logger.Component(log, "gorm"), logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.Driver,
	}, logger.Component(log, "telemetry")); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	documentRepo := persistence.NewGormDocumentRepository(db.DB)

	// Upload storage and conversion
	store, err := infraprinting.NewFileSystemStorage(&infraprinting.FileSystemStorageConfig{
		BasePath:    cfg.Storage.UploadDir,
		MaxFileSize: cfg.HTTP.MaxBodySize,
		Logger:      logger.Component(log, "storage"),
	})
	if err != nil {
		log.Fatal("Failed to initialize upload storage", zap.Error(err))
	}

	pageCounter := infraprinting.PDFCPUPageCounter{}
	converterConfig := &infraprinting.ConverterConfig{
		SofficePath: cfg.Conversion.SofficePath,
		Timeout:     cfg.Conversion.Timeout,
		PageCounter: pageCounter,
		Logger:      logger.Component(log, "converter"),
	}
	if cfg.Conversion.HTMLEnabled {
		htmlConverter := infraprinting.NewChromedpHTMLConverter(&infraprinting.ChromedpConfig{
			DefaultTimeout: cfg.Conversion.Timeout,
			RemoteURL:      cfg.Conversion.ChromeRemoteURL,
			NoSandbox:      cfg.Conversion.ChromeNoSandbox,
			Logger:         logger.Component(log, "chromedp"),
		})
		defer func() {
			if err := htmlConverter.Close(); err != nil {
				log.Warn("Error closing browser", zap.Error(err))
			}
		}()
		converterConfig.HTML = htmlConverter
	}
	converter := infraprinting.NewDocumentConverter(converterConfig)

	// Spooler and renderer
	backend, err := newPrintBackend(cfg, pageCounter, log)
	if err != nil {
		log.Fatal("Failed to initialize print backend", zap.Error(err))
	}
	gateway := backend.gateway

	// Idempotency cache
	submissions, err := cache.NewSubmissionCacheFactory(cfg.Redis,
		cache.WithLogger(logger.Component(log, "cache")),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize submission cache", zap.Error(err))
	}
	defer func() {
		if err := submissions.Close(); err != nil {
			log.Warn("Error closing submission cache", zap.Error(err))
		}
	}()

	archive, err := newArchive(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize document archive", zap.Error(err))
	}

	// Application services
	submitter := printingapp.NewPrintSubmitter(printingapp.SubmitterConfig{
		Writer: infraprinting.NewPDFCPUSubsetWriter(&infraprinting.SubsetWriterConfig{
			OutputDir: store.BasePath(),
			Logger:    logger.Component(log, "subset"),
		}),
		Renderer:     backend.renderer,
		Gateway:      gateway,
		Encoder:      backend.encoder,
		PollAttempts: cfg.Spooler.PollAttempts,
		PollInterval: cfg.Spooler.PollInterval,
		Metrics:      submissionMetrics,
		Logger:       logger.Component(log, "submitter"),
	})
	printService := printingapp.NewPrintService(printingapp.ServiceConfig{
		Store:           store,
		Converter:       converter,
		Repository:      documentRepo,
		Archive:         archive,
		Gateway:         gateway,
		Submitter:       submitter,
		Cache:           submissions,
		IdempotencyTTL:  cfg.Idempotency.TTL,
		EnumConcurrency: cfg.Spooler.EnumConcurrency,
		Logger:          logger.Component(log, "print"),
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	// Handlers and routes
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(ctx context.Context) error { return db.Ping() }).
		AddCheck("spooler", func(ctx context.Context) error {
			_, err := gateway.Printers(ctx)
			return err
		})
	printHandler := handler.NewPrintHandler(printService)

	// Root level health endpoint for load balancers
	handler.SystemRoutes(systemHandler).RegisterRoutes(&engine.RouterGroup)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.SystemRoutes(systemHandler)).
		Register(handler.DocumentRoutes(printHandler)).
		Register(handler.PrintRoutes(printHandler)).
		Register(handler.PrinterRoutes(printHandler)).
		Register(handler.JobRoutes(printHandler)).
		Setup()

	// Retention sweep
	cleanup, err := scheduler.NewScheduler(scheduler.Config{
		Name:          "retention",
		Interval:      cfg.Storage.CleanupInterval,
		TaskTimeout:   5 * time.Minute,
		RetryAttempts: 1,
		RetryDelay:    time.Minute,
		RunOnStart:    true,
	}, func(ctx context.Context) error {
		_, err := printService.Cleanup(ctx, cfg.Storage.Retention)
		return err
	}, logger.Component(log, "scheduler"))
	if err != nil {
		log.Fatal("Failed to create cleanup scheduler", zap.Error(err))
	}
	if cfg.Storage.Retention > 0 {
		if err := cleanup.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cleanup scheduler", zap.Error(err))
		}
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cleanup.Stop(ctx); err != nil {
		log.Warn("Cleanup scheduler did not stop in time", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// printBackend is the spooler gateway together with the renderer that
// feeds it and the option encoder for that renderer's command line
type printBackend struct {
	gateway  printing.SpoolerGateway
	renderer printing.Renderer
	encoder  printing.OptionEncoder
}

// newPrintBackend builds the renderer and spooler pair selected in the
// configuration. config.validate only admits lp/cups, sumatra/windows and
// memory/memory.
func newPrintBackend(cfg *config.Config, counter printing.PageCounter, log *zap.Logger) (*printBackend, error) {
	switch cfg.Renderer.Backend {
	case "lp":
		renderer, err := infraprinting.NewLPRenderer(&infraprinting.LPConfig{
			BinaryPath: cfg.Renderer.BinaryPath,
			Timeout:    cfg.Renderer.Timeout,
			Logger:     logger.Component(log, "renderer"),
		})
		if err != nil {
			return nil, err
		}
		gateway := infraprinting.NewCUPSSpooler(&infraprinting.CUPSConfig{
			LpstatPath:     cfg.Spooler.LpstatPath,
			LpqPath:        cfg.Spooler.LpqPath,
			LpoptionsPath:  cfg.Spooler.LpoptionsPath,
			CommandTimeout: cfg.Spooler.CommandTimeout,
			Logger:         logger.Component(log, "cups"),
		})
		return &printBackend{gateway: gateway, renderer: renderer, encoder: infraprinting.LPEncoder{}}, nil
	case "sumatra":
		renderer, err := infraprinting.NewSumatraRenderer(&infraprinting.SumatraConfig{
			BinaryPath: cfg.Renderer.BinaryPath,
			Timeout:    cfg.Renderer.Timeout,
			Logger:     logger.Component(log, "renderer"),
		})
		if err != nil {
			return nil, err
		}
		gateway := infraprinting.NewWindowsSpooler(&infraprinting.WindowsConfig{
			PowerShellPath: cfg.Spooler.PowerShellPath,
			CommandTimeout: cfg.Spooler.CommandTimeout,
			Logger:         logger.Component(log, "winspool"),
		})
		return &printBackend{gateway: gateway, renderer: renderer, encoder: infraprinting.SumatraEncoder{}}, nil
	case "memory":
		memory := infraprinting.NewMemorySpooler(logger.Component(log, "spooler"), cfg.Spooler.MemoryPrinters...)
		return &printBackend{
			gateway:  memory,
			renderer: infraprinting.NewMemoryRenderer(memory, counter, logger.Component(log, "renderer")),
			encoder:  infraprinting.SumatraEncoder{},
		}, nil
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
	}
}

// newArchive returns the S3 archive when enabled, or a no-op archive
func newArchive(cfg *config.Config, log *zap.Logger) (printing.DocumentArchive, error) {
	if !cfg.Archive.Enabled {
		return storage.NopArchive{}, nil
	}

	archive, err := storage.NewS3DocumentArchive(&cfg.Archive,
		storage.WithLogger(logger.Component(log, "archive")),
		storage.WithPresignExpiration(cfg.Archive.PresignExpiration),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
	}
	log.Info("Document archive enabled", zap.String("bucket", archive.GetBucket()))
	return archive, nil
}
