package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"PRINTDESK_APP_NAME",
	"PRINTDESK_APP_ENV",
	"PRINTDESK_APP_PORT",
	"PRINTDESK_RENDERER_BACKEND",
	"PRINTDESK_SPOOLER_BACKEND",
	"PRINTDESK_SPOOLER_POLL_ATTEMPTS",
	"PRINTDESK_SPOOLER_POLL_INTERVAL",
	"PRINTDESK_STORAGE_UPLOAD_DIR",
	"PRINTDESK_STORAGE_RETENTION",
	"PRINTDESK_DATABASE_DRIVER",
	"PRINTDESK_DATABASE_PASSWORD",
	"PRINTDESK_DATABASE_SSLMODE",
	"PRINTDESK_DATABASE_MAX_OPEN_CONNS",
	"PRINTDESK_DATABASE_MAX_IDLE_CONNS",
	"PRINTDESK_REDIS_ENABLED",
	"PRINTDESK_ARCHIVE_ENABLED",
	"PRINTDESK_ARCHIVE_BUCKET",
	"PRINTDESK_ARCHIVE_ACCESS_KEY",
	"PRINTDESK_ARCHIVE_SECRET_KEY",
	"PRINTDESK_TELEMETRY_ENABLED",
	"PRINTDESK_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv blanks every variable the tests touch; t.Setenv restores them
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "printdesk", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "memory", cfg.Renderer.Backend)
		assert.Equal(t, "memory", cfg.Spooler.Backend)
		assert.Equal(t, 5, cfg.Spooler.PollAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Spooler.PollInterval)
		assert.Equal(t, 60*time.Second, cfg.Renderer.Timeout)
		assert.Equal(t, "./uploads", cfg.Storage.UploadDir)
		assert.Equal(t, 24*time.Hour, cfg.Storage.Retention)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.False(t, cfg.Archive.Enabled)
		assert.Equal(t, []string{"Virtual-Printer"}, cfg.Spooler.MemoryPrinters)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Equal(t, "printdesk", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with PRINTDESK prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_APP_NAME", "print-edge")
		t.Setenv("PRINTDESK_APP_PORT", "9000")
		t.Setenv("PRINTDESK_RENDERER_BACKEND", "lp")
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "cups")
		t.Setenv("PRINTDESK_SPOOLER_POLL_ATTEMPTS", "8")
		t.Setenv("PRINTDESK_SPOOLER_POLL_INTERVAL", "250ms")
		t.Setenv("PRINTDESK_STORAGE_UPLOAD_DIR", "/srv/uploads")
		t.Setenv("PRINTDESK_DATABASE_DRIVER", "postgres")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "print-edge", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "lp", cfg.Renderer.Backend)
		assert.Equal(t, "lp", cfg.Renderer.BinaryPath)
		assert.Equal(t, "cups", cfg.Spooler.Backend)
		assert.Equal(t, 8, cfg.Spooler.PollAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.Spooler.PollInterval)
		assert.Equal(t, "/srv/uploads", cfg.Storage.UploadDir)
		assert.Equal(t, "postgres", cfg.Database.Driver)
	})

	t.Run("rejects unknown spooler backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "winspool")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "spooler.backend")
	})

	t.Run("memory renderer requires memory spooler", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "cups")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "renderer.backend=memory")
	})

	t.Run("rejects sampling ratio outside 0..1", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.sampling_ratio")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_DATABASE_DRIVER", "oracle")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("PRINTDESK_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("archive requires bucket and credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_ARCHIVE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "archive.bucket")

		t.Setenv("PRINTDESK_ARCHIVE_BUCKET", "printdesk")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "archive.access_key")

		t.Setenv("PRINTDESK_ARCHIVE_ACCESS_KEY", "key")
		t.Setenv("PRINTDESK_ARCHIVE_SECRET_KEY", "secret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Archive.Enabled)
	})
}

func TestLoad_BackendPairs(t *testing.T) {
	tests := []struct {
		name       string
		renderer   string
		spooler    string
		wantErr    string
		wantBinary string
	}{
		{name: "lp queues on cups", renderer: "lp", spooler: "cups", wantBinary: "lp"},
		{name: "sumatra prints through the windows spooler", renderer: "sumatra", spooler: "windows", wantBinary: "SumatraPDF.exe"},
		{name: "memory renderer with memory spooler", renderer: "memory", spooler: "memory"},
		{name: "sumatra cannot feed cups", renderer: "sumatra", spooler: "cups", wantErr: "renderer.backend=sumatra requires spooler.backend=windows"},
		{name: "lp cannot feed the windows spooler", renderer: "lp", spooler: "windows", wantErr: "renderer.backend=lp requires spooler.backend=cups"},
		{name: "memory renderer cannot feed cups", renderer: "memory", spooler: "cups", wantErr: "renderer.backend=memory requires spooler.backend=memory"},
		{name: "unknown renderer", renderer: "acrobat", spooler: "windows", wantErr: "renderer.backend must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PRINTDESK_RENDERER_BACKEND", tt.renderer)
			t.Setenv("PRINTDESK_SPOOLER_BACKEND", tt.spooler)

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBinary, cfg.Renderer.BinaryPath)
			assert.Equal(t, "powershell.exe", cfg.Spooler.PowerShellPath)
		})
	}
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("memory renderer is rejected in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be 'memory' in production")
	})

	t.Run("postgres requires password in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_APP_ENV", "production")
		t.Setenv("PRINTDESK_RENDERER_BACKEND", "lp")
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "cups")
		t.Setenv("PRINTDESK_DATABASE_DRIVER", "postgres")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("postgres requires SSL in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_APP_ENV", "production")
		t.Setenv("PRINTDESK_RENDERER_BACKEND", "lp")
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "cups")
		t.Setenv("PRINTDESK_DATABASE_DRIVER", "postgres")
		t.Setenv("PRINTDESK_DATABASE_PASSWORD", "secure-password")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRINTDESK_APP_ENV", "production")
		t.Setenv("PRINTDESK_RENDERER_BACKEND", "lp")
		t.Setenv("PRINTDESK_SPOOLER_BACKEND", "cups")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
