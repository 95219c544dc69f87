package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	NetSuite  NetSuiteConfig
	Storage   StorageConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
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

// RedisConfig holds Redis configuration. Redis is optional; an empty Host
// disables the shared token store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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

// SyncConfig holds settings of the sync jobs and their trigger endpoints.
type SyncConfig struct {
	// Secret is compared against the SecretHeader value. SecretHash, a bcrypt
	// hash, may be configured instead so the plain secret is not on disk.
	Secret       string
	SecretHash   string
	SecretHeader string

	JobTimeout         time.Duration
	BatchSize          int
	DefaultConcurrency int
	MaxConcurrency     int
	// DefaultLookbackDays is used by the customer job when no cursor exists.
	DefaultLookbackDays int

	ETAManifestFileID  string
	ETAExportName      string
	IdentifierFileName string
	IdentifierFolder   string

	// ArchiveReports writes manifests and job reports to object storage.
	ArchiveReports bool

	// TriggerRateLimit bounds trigger calls per client IP per TriggerRateWindow.
	// Zero disables the limit.
	TriggerRateLimit  int
	TriggerRateWindow time.Duration
}

// NetSuiteConfig holds ERP endpoint and credential settings.
type NetSuiteConfig struct {
	AccountID      string
	QueryURL       string
	ScriptURL      string
	QueryPageSize  int
	PageLines      int
	TimeoutSeconds int
	MaxWait        time.Duration

	TokenURL       string
	ClientID       string
	CertificateID  string
	PrivateKeyFile string
	PrivateKeyPEM  string
	Scopes         []string
	// StaticToken bypasses the OAuth flow; intended for sandboxes.
	StaticToken string
	TokenSkew   time.Duration
	// ShareToken stores the access token in Redis for other replicas.
	ShareToken bool
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// SwaggerConfig holds Swagger/OpenAPI documentation configuration
type SwaggerConfig struct {
	Enabled    bool     // Whether to enable Swagger endpoint
	AllowedIPs []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool

	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// ProfilingConfig holds Pyroscope continuous profiling configuration
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	// ProfileTypes names the collected profiles: cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex_count,
	// mutex_duration, block_count, block_duration.
	ProfileTypes         []string
	MutexProfileFraction int
	BlockProfileRate     int
	SpanProfiles         bool // link CPU profiles to trace spans
}

// Load loads configuration from config.toml and environment variables.
// Environment variables use the ERP_ prefix, e.g. ERP_NETSUITE_ACCOUNT_ID.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
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
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
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
		Sync: SyncConfig{
			Secret:              v.GetString("sync.secret"),
			SecretHash:          v.GetString("sync.secret_hash"),
			SecretHeader:        v.GetString("sync.secret_header"),
			JobTimeout:          v.GetDuration("sync.job_timeout"),
			BatchSize:           v.GetInt("sync.batch_size"),
			DefaultConcurrency:  v.GetInt("sync.default_concurrency"),
			MaxConcurrency:      v.GetInt("sync.max_concurrency"),
			DefaultLookbackDays: v.GetInt("sync.default_lookback_days"),
			ETAManifestFileID:   v.GetString("sync.eta_manifest_file_id"),
			ETAExportName:       v.GetString("sync.eta_export_name"),
			IdentifierFileName:  v.GetString("sync.identifier_file_name"),
			IdentifierFolder:    v.GetString("sync.identifier_folder"),
			ArchiveReports:      v.GetBool("sync.archive_reports"),
			TriggerRateLimit:    v.GetInt("sync.trigger_rate_limit"),
			TriggerRateWindow:   v.GetDuration("sync.trigger_rate_window"),
		},
		NetSuite: NetSuiteConfig{
			AccountID:      v.GetString("netsuite.account_id"),
			QueryURL:       v.GetString("netsuite.query_url"),
			ScriptURL:      v.GetString("netsuite.script_url"),
			QueryPageSize:  v.GetInt("netsuite.query_page_size"),
			PageLines:      v.GetInt("netsuite.page_lines"),
			TimeoutSeconds: v.GetInt("netsuite.timeout_seconds"),
			MaxWait:        v.GetDuration("netsuite.max_wait"),
			TokenURL:       v.GetString("netsuite.token_url"),
			ClientID:       v.GetString("netsuite.client_id"),
			CertificateID:  v.GetString("netsuite.certificate_id"),
			PrivateKeyFile: v.GetString("netsuite.private_key_file"),
			PrivateKeyPEM:  v.GetString("netsuite.private_key_pem"),
			Scopes:         v.GetStringSlice("netsuite.scopes"),
			StaticToken:    v.GetString("netsuite.static_token"),
			TokenSkew:      v.GetDuration("netsuite.token_skew"),
			ShareToken:     v.GetBool("netsuite.share_token"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:              v.GetBool("profiling.enabled"),
			ServerAddress:        v.GetString("profiling.server_address"),
			ApplicationName:      v.GetString("profiling.application_name"),
			BasicAuthUser:        v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword:    v.GetString("profiling.basic_auth_password"),
			ProfileTypes:         v.GetStringSlice("profiling.profile_types"),
			MutexProfileFraction: v.GetInt("profiling.mutex_profile_fraction"),
			BlockProfileRate:     v.GetInt("profiling.block_profile_rate"),
			SpanProfiles:         v.GetBool("profiling.span_profiles"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "portalsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "portal"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Sync requests run to completion inside the request, so the write
	// timeout must outlast the job timeout.
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 15 * time.Minute
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = cfg.Sync.JobTimeout + 30*time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}

	if cfg.Sync.SecretHeader == "" {
		cfg.Sync.SecretHeader = "X-Sync-Secret"
	}
	if cfg.Sync.TriggerRateWindow == 0 {
		cfg.Sync.TriggerRateWindow = time.Minute
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 500
	}
	if cfg.Sync.DefaultConcurrency == 0 {
		cfg.Sync.DefaultConcurrency = 4
	}
	if cfg.Sync.MaxConcurrency == 0 {
		cfg.Sync.MaxConcurrency = 10
	}
	if cfg.Sync.DefaultLookbackDays == 0 {
		cfg.Sync.DefaultLookbackDays = 3
	}
	if cfg.Sync.ETAExportName == "" {
		cfg.Sync.ETAExportName = "etas"
	}
	if cfg.Sync.IdentifierFileName == "" {
		cfg.Sync.IdentifierFileName = "customer_identifiers.ndjson"
	}

	if cfg.NetSuite.QueryPageSize == 0 {
		cfg.NetSuite.QueryPageSize = 1000
	}
	if cfg.NetSuite.PageLines == 0 {
		cfg.NetSuite.PageLines = 1000
	}
	if cfg.NetSuite.TimeoutSeconds == 0 {
		cfg.NetSuite.TimeoutSeconds = 60
	}
	if cfg.NetSuite.MaxWait == 0 {
		cfg.NetSuite.MaxWait = 120 * time.Second
	}
	if cfg.NetSuite.TokenSkew == 0 {
		cfg.NetSuite.TokenSkew = time.Minute
	}
	if cfg.NetSuite.TokenURL == "" && cfg.NetSuite.AccountID != "" {
		host := strings.ReplaceAll(strings.ToLower(cfg.NetSuite.AccountID), "_", "-")
		cfg.NetSuite.TokenURL = "https://" + host + ".suitetalk.api.netsuite.com/services/rest/auth/oauth2/v1/token"
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "portalsync"
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
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive")
	}
	if c.Sync.DefaultConcurrency <= 0 || c.Sync.DefaultConcurrency > c.Sync.MaxConcurrency {
		return fmt.Errorf("sync.default_concurrency must be between 1 and sync.max_concurrency (%d)", c.Sync.MaxConcurrency)
	}

	if c.App.Env == "production" {
		if c.Sync.Secret == "" && c.Sync.SecretHash == "" {
			return fmt.Errorf("sync.secret or sync.secret_hash is required in production")
		}
		if c.Sync.Secret != "" && len(c.Sync.Secret) < 32 {
			return fmt.Errorf("sync.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.NetSuite.StaticToken != "" {
			return fmt.Errorf("netsuite.static_token is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or IP restricted in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}

	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
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
