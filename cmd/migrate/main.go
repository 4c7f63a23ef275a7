package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	printingapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/infrastructure/persistence"
	infraprinting "github.com/printdesk/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

func main() {
	// Parse flags
	var (
		logLevel  string
		retention time.Duration
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&retention, "retention", 0, "Retention for the cleanup command (default: storage.retention)")
	flag.Parse()

	// Get command and arguments
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Maintenance CLI started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(logLevel))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Document registry schema is up to date")

	case "cleanup":
		if retention <= 0 {
			retention = cfg.Storage.Retention
		}
		store, err := infraprinting.NewFileSystemStorage(&infraprinting.FileSystemStorageConfig{
			BasePath: cfg.Storage.UploadDir,
			Logger:   log,
		})
		if err != nil {
			log.Fatal("Failed to open upload storage", zap.Error(err))
		}
		svc := printingapp.NewPrintService(printingapp.ServiceConfig{
			Store:      store,
			Repository: persistence.NewGormDocumentRepository(db.DB),
			Logger:     log,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		result, err := svc.Cleanup(ctx, retention)
		if err != nil {
			log.Fatal("Cleanup failed", zap.Error(err))
		}
		log.Info("Cleanup finished",
			zap.Duration("retention", retention),
			zap.Int("files_removed", result.FilesRemoved),
			zap.Int64("records_removed", result.RecordsRemoved),
		)

	case "stats":
		stats, err := db.Stats()
		if err != nil {
			log.Fatal("Failed to read connection stats", zap.Error(err))
		}
		log.Info("Connection pool",
			zap.Int("max_open", stats.MaxOpenConnections),
			zap.Int("open", stats.OpenConnections),
			zap.Int("in_use", stats.InUse),
			zap.Int("idle", stats.Idle),
		)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Print Service Maintenance Tool

Usage:
  migrate [flags] <command>

Commands:
  up        Create or update the document registry tables
  cleanup   Remove uploads and registry entries older than the retention
  stats     Show database connection pool statistics

Flags:
  -log-level string     Log level (default: info)
  -retention duration   Retention for cleanup (default: storage.retention)`)
}
