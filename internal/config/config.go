// Package config loads and validates scraper service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Events   EventsConfig   `mapstructure:"events"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
// Development also exposes internal error messages in API responses.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FetchConfig configures the static fetcher and the shared fetch budget.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// HeadlessConfig configures the browser fallback.
type HeadlessConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ExecPath           string `mapstructure:"exec_path"`
	NoSandbox          bool   `mapstructure:"no_sandbox"`
	// MaxParallel caps concurrent browsers. Zero leaves them unbounded.
	MaxParallel        int    `mapstructure:"max_parallel"`
	ViewportWidth      int    `mapstructure:"viewport_width"`
	ViewportHeight     int    `mapstructure:"viewport_height"`
	IdleConnections    int    `mapstructure:"idle_connections"`
	IdleWindowMS       int    `mapstructure:"idle_window_ms"`
	PromoteShells      bool   `mapstructure:"promote_shells"`
	PromotionThreshold int    `mapstructure:"promotion_threshold"`
}

// ScraperConfig tunes the orchestrator.
type ScraperConfig struct {
	MaxBulk            int  `mapstructure:"max_bulk"`
	HistoryLimit       int  `mapstructure:"history_limit"`
	DetectTechnologies bool `mapstructure:"detect_technologies"`
}

// QuotaConfig limits how many scrapes a caller may run per hour.
type QuotaConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"`
	PerHour   int    `mapstructure:"per_hour"`
	Burst     int    `mapstructure:"burst"`
	RedisAddr string `mapstructure:"redis_addr"`
}

// StorageConfig selects the record store and the raw HTML archive.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	ArchiveHTML bool   `mapstructure:"archive_html"`
	BlobBackend string `mapstructure:"blob_backend"`
	LocalDir    string `mapstructure:"local_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	GCSEndpoint string `mapstructure:"gcs_endpoint"`
	Prefix      string `mapstructure:"prefix"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	Table       string `mapstructure:"table"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// EventsConfig selects where completion events go.
type EventsConfig struct {
	Backend      string `mapstructure:"backend"`
	Topic        string `mapstructure:"topic"`
	ProjectID    string `mapstructure:"project_id"`
	KafkaBrokers string `mapstructure:"kafka_brokers"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Backend names accepted by Validate.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendRedis    = "redis"
	BackendPubSub   = "pubsub"
	BackendKafka    = "kafka"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("headless.no_sandbox", false)
	v.SetDefault("headless.max_parallel", 0)
	v.SetDefault("headless.viewport_width", 1366)
	v.SetDefault("headless.viewport_height", 768)
	v.SetDefault("headless.idle_connections", 2)
	v.SetDefault("headless.idle_window_ms", 500)
	v.SetDefault("headless.promote_shells", false)
	v.SetDefault("headless.promotion_threshold", 200)
	v.SetDefault("scraper.max_bulk", 20)
	v.SetDefault("scraper.history_limit", 100)
	v.SetDefault("scraper.detect_technologies", false)
	v.SetDefault("quota.enabled", false)
	v.SetDefault("quota.backend", BackendMemory)
	v.SetDefault("quota.per_hour", 10)
	v.SetDefault("quota.burst", 0)
	v.SetDefault("quota.redis_addr", "")
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.archive_html", false)
	v.SetDefault("storage.blob_backend", BackendMemory)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_endpoint", "")
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "scraped_data")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("events.backend", BackendNone)
	v.SetDefault("events.topic", "scrape-completed")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.kafka_brokers", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.MaxParallel < 0 {
		return fmt.Errorf("headless.max_parallel must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Scraper.MaxBulk < 0 || c.Scraper.HistoryLimit < 0 {
		return fmt.Errorf("scraper.max_bulk and scraper.history_limit must be >= 0")
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if !c.Storage.ArchiveHTML {
		return nil
	}
	switch c.Storage.BlobBackend {
	case BackendMemory:
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.blob_backend is local")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.blob_backend is gcs")
		}
	default:
		return fmt.Errorf("storage.blob_backend %q is not supported", c.Storage.BlobBackend)
	}
	return nil
}

func (c Config) validateQuota() error {
	if !c.Quota.Enabled {
		return nil
	}
	if c.Quota.PerHour <= 0 {
		return fmt.Errorf("quota.per_hour must be > 0 when quota is enabled")
	}
	switch c.Quota.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Quota.RedisAddr == "" {
			return fmt.Errorf("quota.redis_addr must be set when quota.backend is redis")
		}
	default:
		return fmt.Errorf("quota.backend %q is not supported", c.Quota.Backend)
	}
	return nil
}

func (c Config) validateEvents() error {
	switch c.Events.Backend {
	case BackendNone, "":
		return nil
	case BackendMemory:
	case BackendPubSub:
		if c.Events.ProjectID == "" {
			return fmt.Errorf("events.project_id must be set when events.backend is pubsub")
		}
	case BackendKafka:
		if c.Events.KafkaBrokers == "" {
			return fmt.Errorf("events.kafka_brokers must be set when events.backend is kafka")
		}
	default:
		return fmt.Errorf("events.backend %q is not supported", c.Events.Backend)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("events.topic must be set when events are enabled")
	}
	return nil
}

// FetchTimeout is the per-fetch budget shared by the static and browser paths.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds a whole HTTP request. Zero means no limit.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// IdleWindow is how long the browser network must stay quiet.
func (c Config) IdleWindow() time.Duration {
	return time.Duration(c.Headless.IdleWindowMS) * time.Millisecond
}
