package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for document registry tracing.
type DBTracingConfig struct {
	Enabled bool
	// DBName is reported as db.name on every span (sqlite, postgres)
	DBName string
	// LogFullSQL keeps bound values in db.statement; document names and
	// storage paths then appear in traces
	LogFullSQL bool
}

// RegisterDBTracing installs the otelgorm plugin on db so each registry
// query becomes a child span of the request that issued it.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBName),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
	)
	return nil
}
