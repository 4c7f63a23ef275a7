package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Storage     StorageConfig
	Renderer    RendererConfig
	Conversion  ConversionConfig
	Spooler     SpoolerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	Archive     ArchiveConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// StorageConfig holds upload directory settings
type StorageConfig struct {
	UploadDir       string
	Retention       time.Duration // uploads older than this are removed
	CleanupInterval time.Duration
}

// RendererConfig selects and configures the program that prints documents
type RendererConfig struct {
	Backend    string // lp, sumatra, memory
	BinaryPath string // defaults to lp or SumatraPDF.exe by backend
	Timeout    time.Duration
}

// ConversionConfig holds settings for converting uploads to PDF
type ConversionConfig struct {
	SofficePath     string
	Timeout         time.Duration
	HTMLEnabled     bool
	ChromeRemoteURL string // ws:// URL of a running browser; empty starts a local one
	ChromeNoSandbox bool
}

// SpoolerConfig selects the print spooler and the job correlation window
type SpoolerConfig struct {
	Backend         string // cups, windows, memory
	LpstatPath      string
	LpqPath         string
	LpoptionsPath   string
	PowerShellPath  string
	CommandTimeout  time.Duration
	PollAttempts    int
	PollInterval    time.Duration
	EnumConcurrency int
	MemoryPrinters  []string // printers of the memory backend, the first is the default
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // sqlite, postgres
	Path            string // sqlite file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// IdempotencyConfig controls replay of print requests carrying an Idempotency-Key
type IdempotencyConfig struct {
	TTL time.Duration
}

// ArchiveConfig holds S3-compatible archive settings
type ArchiveConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	Prefix            string
	PresignExpiration time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool    // Traces, metrics and the log bridge
	CollectorEndpoint     string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string
	Insecure              bool          // Use a non-TLS connection to the collector
	MetricsExportInterval time.Duration // Default: 60s
	LogsEnabled           bool          // Bridge zap logs to the collector
	DBTraceEnabled        bool          // Trace registry queries (otelgorm)
}

var (
	rendererBackends = []string{"lp", "sumatra", "memory"}
	spoolerBackends  = []string{"cups", "windows", "memory"}
	databaseDrivers  = []string{"sqlite", "postgres"}

	// supportedBackends maps each renderer to the spooler its jobs land in.
	// lp queues on CUPS, SumatraPDF on the Windows spooler, and the memory
	// renderer records into the memory spooler.
	supportedBackends = map[string]string{
		"lp":      "cups",
		"sumatra": "windows",
		"memory":  "memory",
	}
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PRINTDESK_ prefix (e.g., PRINTDESK_SPOOLER_BACKEND)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PRINTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			UploadDir:       v.GetString("storage.upload_dir"),
			Retention:       v.GetDuration("storage.retention"),
			CleanupInterval: v.GetDuration("storage.cleanup_interval"),
		},
		Renderer: RendererConfig{
			Backend:    v.GetString("renderer.backend"),
			BinaryPath: v.GetString("renderer.binary_path"),
			Timeout:    v.GetDuration("renderer.timeout"),
		},
		Conversion: ConversionConfig{
			SofficePath:     v.GetString("conversion.soffice_path"),
			Timeout:         v.GetDuration("conversion.timeout"),
			HTMLEnabled:     v.GetBool("conversion.html_enabled"),
			ChromeRemoteURL: v.GetString("conversion.chrome_remote_url"),
			ChromeNoSandbox: v.GetBool("conversion.chrome_no_sandbox"),
		},
		Spooler: SpoolerConfig{
			Backend:         v.GetString("spooler.backend"),
			LpstatPath:      v.GetString("spooler.lpstat_path"),
			LpqPath:         v.GetString("spooler.lpq_path"),
			LpoptionsPath:   v.GetString("spooler.lpoptions_path"),
			PowerShellPath:  v.GetString("spooler.powershell_path"),
			CommandTimeout:  v.GetDuration("spooler.command_timeout"),
			PollAttempts:    v.GetInt("spooler.poll_attempts"),
			PollInterval:    v.GetDuration("spooler.poll_interval"),
			EnumConcurrency: v.GetInt("spooler.enum_concurrency"),
			MemoryPrinters:  v.GetStringSlice("spooler.memory_printers"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("idempotency.ttl"),
		},
		Archive: ArchiveConfig{
			Enabled:           v.GetBool("archive.enabled"),
			Endpoint:          v.GetString("archive.endpoint"),
			Region:            v.GetString("archive.region"),
			Bucket:            v.GetString("archive.bucket"),
			AccessKey:         v.GetString("archive.access_key"),
			SecretKey:         v.GetString("archive.secret_key"),
			UseSSL:            v.GetBool("archive.use_ssl"),
			UsePathStyle:      v.GetBool("archive.use_path_style"),
			Prefix:            v.GetString("archive.prefix"),
			PresignExpiration: v.GetDuration("archive.presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "printdesk"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	// Print requests include the spooler poll window
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 50 << 20 // 50MB
	}
	// An empty CORS origin list means no cross-origin requests are allowed
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "./uploads"
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = 24 * time.Hour
	}
	if cfg.Storage.CleanupInterval == 0 {
		cfg.Storage.CleanupInterval = time.Hour
	}
	if cfg.Renderer.Backend == "" {
		cfg.Renderer.Backend = "memory"
	}
	if cfg.Renderer.BinaryPath == "" {
		switch cfg.Renderer.Backend {
		case "lp":
			cfg.Renderer.BinaryPath = "lp"
		case "sumatra":
			cfg.Renderer.BinaryPath = "SumatraPDF.exe"
		}
	}
	if cfg.Renderer.Timeout == 0 {
		cfg.Renderer.Timeout = 60 * time.Second
	}
	if cfg.Conversion.SofficePath == "" {
		cfg.Conversion.SofficePath = "soffice"
	}
	if cfg.Conversion.Timeout == 0 {
		cfg.Conversion.Timeout = 2 * time.Minute
	}
	if cfg.Spooler.Backend == "" {
		cfg.Spooler.Backend = "memory"
	}
	if cfg.Spooler.LpstatPath == "" {
		cfg.Spooler.LpstatPath = "lpstat"
	}
	if cfg.Spooler.LpqPath == "" {
		cfg.Spooler.LpqPath = "lpq"
	}
	if cfg.Spooler.LpoptionsPath == "" {
		cfg.Spooler.LpoptionsPath = "lpoptions"
	}
	if cfg.Spooler.PowerShellPath == "" {
		cfg.Spooler.PowerShellPath = "powershell.exe"
	}
	if cfg.Spooler.CommandTimeout == 0 {
		cfg.Spooler.CommandTimeout = 10 * time.Second
	}
	if cfg.Spooler.PollAttempts == 0 {
		cfg.Spooler.PollAttempts = 5
	}
	if cfg.Spooler.PollInterval == 0 {
		cfg.Spooler.PollInterval = 500 * time.Millisecond
	}
	if cfg.Spooler.EnumConcurrency == 0 {
		cfg.Spooler.EnumConcurrency = 4
	}
	if len(cfg.Spooler.MemoryPrinters) == 0 {
		cfg.Spooler.MemoryPrinters = []string{"Virtual-Printer"}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "printdesk.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "printdesk"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "printdesk:submission:"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.PresignExpiration == 0 {
		cfg.Archive.PresignExpiration = 15 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !slices.Contains(rendererBackends, c.Renderer.Backend) {
		return fmt.Errorf("renderer.backend must be one of %v, got %q", rendererBackends, c.Renderer.Backend)
	}
	if !slices.Contains(spoolerBackends, c.Spooler.Backend) {
		return fmt.Errorf("spooler.backend must be one of %v, got %q", spoolerBackends, c.Spooler.Backend)
	}
	if want := supportedBackends[c.Renderer.Backend]; c.Spooler.Backend != want {
		return fmt.Errorf("renderer.backend=%s requires spooler.backend=%s, got %q",
			c.Renderer.Backend, want, c.Spooler.Backend)
	}
	if c.Spooler.PollAttempts < 0 {
		return fmt.Errorf("spooler.poll_attempts cannot be negative")
	}
	if c.Spooler.EnumConcurrency < 0 {
		return fmt.Errorf("spooler.enum_concurrency cannot be negative")
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage.retention cannot be negative")
	}

	if !slices.Contains(databaseDrivers, c.Database.Driver) {
		return fmt.Errorf("database.driver must be one of %v, got %q", databaseDrivers, c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive is enabled")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return fmt.Errorf("archive.access_key and archive.secret_key are required when archive is enabled")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Renderer.Backend == "memory" {
			return fmt.Errorf("renderer.backend cannot be 'memory' in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
