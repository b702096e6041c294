// Package config loads and validates auditor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feed       FeedConfig       `mapstructure:"feed"`
	SampleSize int              `mapstructure:"sample_size"`
	Seed       int64            `mapstructure:"seed"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Lighthouse LighthouseConfig `mapstructure:"lighthouse"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Sink       SinkConfig       `mapstructure:"sink"`
	DB         DBConfig         `mapstructure:"db"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// FeedConfig describes the sitemap the candidate URLs come from.
type FeedConfig struct {
	Location           string        `mapstructure:"location"`
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// BrowserConfig configures the Chrome sessions.
type BrowserConfig struct {
	ExecPath                string        `mapstructure:"exec_path"`
	UserAgent               string        `mapstructure:"user_agent"`
	Headless                bool          `mapstructure:"headless"`
	IgnoreCertificateErrors bool          `mapstructure:"ignore_certificate_errors"`
	NavigationTimeout       time.Duration `mapstructure:"navigation_timeout"`
	Screenshots             bool          `mapstructure:"screenshots"`
	Extractor               string        `mapstructure:"extractor"`
	WindowWidth             int           `mapstructure:"window_width"`
	WindowHeight            int           `mapstructure:"window_height"`
}

// LighthouseConfig configures the audit engine subprocess.
type LighthouseConfig struct {
	Binary     string        `mapstructure:"binary"`
	Categories []string      `mapstructure:"categories"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ExtraArgs  []string      `mapstructure:"extra_args"`
}

// PipelineConfig governs orchestration.
type PipelineConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	HostQPS     float64 `mapstructure:"host_qps"`
	HostBurst   int     `mapstructure:"host_burst"`
}

// StorageConfig selects the blob store used for results and screenshots.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// SinkConfig controls persistence of the report collection.
type SinkConfig struct {
	JSON       bool          `mapstructure:"json"`
	ObjectName string        `mapstructure:"object_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DBConfig controls access to the Postgres report table. An empty DSN disables it.
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	Table       string `mapstructure:"table"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// SQLiteConfig controls the local SQLite report table. An empty path disables it.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PubSubConfig holds metadata for run notifications. An empty topic disables them.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig controls the metrics listener and Pushgateway.
type MetricsConfig struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Storage backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"sample-size": "sample_size",
	"feed":        "feed.location",
	"seed":        "seed",
}

// Load builds a Config from disk/environment. Flags from the set that were
// explicitly changed override both.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
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
	v.SetDefault("feed.location", "")
	v.SetDefault("feed.user_agent", "realtime-site-auditor/0.1")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.insecure_skip_verify", false)
	v.SetDefault("sample_size", 10)
	v.SetDefault("seed", -1)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_certificate_errors", false)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.screenshots", true)
	v.SetDefault("browser.extractor", "script")
	v.SetDefault("browser.window_width", 1350)
	v.SetDefault("browser.window_height", 940)
	v.SetDefault("lighthouse.binary", "lighthouse")
	v.SetDefault("lighthouse.categories", []string{"performance", "seo", "accessibility"})
	v.SetDefault("lighthouse.timeout", 120*time.Second)
	v.SetDefault("lighthouse.extra_args", []string{})
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.host_qps", 0)
	v.SetDefault("pipeline.host_burst", 1)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.local_dir", "data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "runs")
	v.SetDefault("sink.json", true)
	v.SetDefault("sink.object_name", "results.json")
	v.SetDefault("sink.timeout", 30*time.Second)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "audit_reports")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("sqlite.path", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "siteauditor")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := audit.ValidateURL(c.Feed.Location); err != nil {
		return fmt.Errorf("feed.location: %w", err)
	}
	if c.SampleSize < 0 {
		return errors.New("sample_size must be >= 0")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return errors.New("browser.navigation_timeout must be > 0")
	}
	switch c.Browser.Extractor {
	case "script", "snapshot":
	default:
		return fmt.Errorf("browser.extractor must be script or snapshot, got %q", c.Browser.Extractor)
	}
	if _, err := c.Categories(); err != nil {
		return fmt.Errorf("lighthouse.categories: %w", err)
	}
	if c.Lighthouse.Timeout <= 0 {
		return errors.New("lighthouse.timeout must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return errors.New("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.HostQPS < 0 {
		return errors.New("pipeline.host_qps must be >= 0")
	}
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket must be set for the gcs backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of local, memory, gcs, got %q", c.Storage.Backend)
	}
	if c.Sink.Timeout <= 0 {
		return errors.New("sink.timeout must be > 0")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return errors.New("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Metrics.PushgatewayURL != "" {
		if _, err := url.ParseRequestURI(c.Metrics.PushgatewayURL); err != nil {
			return fmt.Errorf("metrics.pushgateway_url: %w", err)
		}
	}
	return nil
}

// Categories parses the configured Lighthouse categories.
func (c Config) Categories() ([]audit.Category, error) {
	cats, err := audit.ParseCategories(c.Lighthouse.Categories)
	if err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	return cats, nil
}

// SeedPtr returns the sampler seed, or nil when sampling should be unseeded.
func (c Config) SeedPtr() *uint64 {
	if c.Seed < 0 {
		return nil
	}
	seed := uint64(c.Seed)
	return &seed
}
