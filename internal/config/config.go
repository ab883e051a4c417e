// Package config loads and validates service configuration via Viper.
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
	Cache    CacheConfig    `mapstructure:"cache"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Detector DetectorConfig `mapstructure:"detector"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CacheConfig governs the refresh coordinator.
type CacheConfig struct {
	StalenessHours      int `mapstructure:"staleness_hours"`
	MemoSize            int `mapstructure:"memo_size"`
	RefreshCheckMinutes int `mapstructure:"refresh_check_minutes"`
	DefaultUpcomingDays int `mapstructure:"default_upcoming_days"`
}

// CrawlerConfig bounds the paginated crawl.
type CrawlerConfig struct {
	MaxPages    int `mapstructure:"max_pages"`
	Concurrency int `mapstructure:"concurrency"`
}

// FetchConfig configures the plain HTTP page fetch.
type FetchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless fallback renderer.
type HeadlessConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	HostQPS       float64 `mapstructure:"host_qps"`
}

// DetectorConfig tunes the interstitial heuristic.
type DetectorConfig struct {
	MinHTMLBytes int      `mapstructure:"min_html_bytes"`
	Keywords     []string `mapstructure:"keywords"`
}

// StorageConfig selects and parameterizes the snapshot store provider.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// DBConfig controls the Postgres snapshot store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for refresh-event notifications. An empty
// provider disables publishing.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOLEWATCH")
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
	v.SetDefault("cache.staleness_hours", 6)
	v.SetDefault("cache.memo_size", 32)
	v.SetDefault("cache.refresh_check_minutes", 30)
	v.SetDefault("cache.default_upcoming_days", 7)
	v.SetDefault("crawler.max_pages", 10)
	v.SetDefault("crawler.concurrency", 3)
	v.SetDefault("fetch.base_url", "https://www.soleretriever.com/sneaker-release-dates")
	v.SetDefault("fetch.user_agent", "solewatch/1.0")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.host_qps", 0.5)
	v.SetDefault("detector.min_html_bytes", 2000)
	v.SetDefault("detector.keywords", []string{
		"just a moment",
		"cf-challenge",
		"checking your browser",
	})
	v.SetDefault("storage.provider", "file")
	v.SetDefault("storage.path", "sneaker_releases.json")
	v.SetDefault("storage.gcs_object", "sneaker_releases.json")
	v.SetDefault("db.table", "snapshots")
	v.SetDefault("pubsub.provider", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Cache.StalenessHours <= 0 {
		return fmt.Errorf("cache.staleness_hours must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Fetch.BaseURL == "" {
		return fmt.Errorf("fetch.base_url is required")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Storage.Provider {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file provider")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	switch c.PubSub.Provider {
	case "none", "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicID == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_id are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown pubsub provider %q", c.PubSub.Provider)
	}
	return nil
}

// Staleness converts the configured staleness window into a duration.
func (c Config) Staleness() time.Duration {
	return time.Duration(c.Cache.StalenessHours) * time.Hour
}

// FetchTimeout converts the per-page fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RefreshCheckInterval is how often the serve loop re-evaluates staleness.
func (c Config) RefreshCheckInterval() time.Duration {
	return time.Duration(c.Cache.RefreshCheckMinutes) * time.Minute
}
