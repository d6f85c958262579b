package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// RefPlaceholder is substituted with the upstream reference in URL templates.
const RefPlaceholder = "{ref}"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Stream   StreamConfig   `yaml:"stream"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"` // 0 keeps long streams open
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// CatalogConfig selects where catalog entries come from.
// With neither path set the built-in catalog is used.
type CatalogConfig struct {
	Path       string `yaml:"path" envconfig:"CATALOG_PATH"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"CATALOG_SQLITE_PATH"`
}

// UpstreamConfig describes the third-party host and how to look like a browser to it.
type UpstreamConfig struct {
	EmbedURL        string        `yaml:"embed_url" envconfig:"UPSTREAM_EMBED_URL"`
	Referer         string        `yaml:"referer" envconfig:"UPSTREAM_REFERER"`
	Origin          string        `yaml:"origin" envconfig:"UPSTREAM_ORIGIN"`
	UserAgent       string        `yaml:"user_agent" envconfig:"UPSTREAM_USER_AGENT"`
	PageTimeout     time.Duration `yaml:"page_timeout" envconfig:"UPSTREAM_PAGE_TIMEOUT"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" envconfig:"UPSTREAM_PROBE_TIMEOUT"`
	MaxPageBytes    int64         `yaml:"max_page_bytes" envconfig:"UPSTREAM_MAX_PAGE_BYTES"`
	CDNTemplates    []string      `yaml:"cdn_templates" envconfig:"UPSTREAM_CDN_TEMPLATES"`
	VideoExtensions []string      `yaml:"video_extensions" envconfig:"UPSTREAM_VIDEO_EXTENSIONS"`
}

// CacheConfig holds resolution cache configuration.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"CACHE_TTL"`
	NegativeTTL   time.Duration `yaml:"negative_ttl" envconfig:"CACHE_NEGATIVE_TTL"` // 0 disables
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"CACHE_SWEEP_INTERVAL"`
}

// StreamConfig bounds how long an upstream media fetch may hold resources.
type StreamConfig struct {
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" envconfig:"STREAM_RESPONSE_HEADER_TIMEOUT"`
	StallTimeout          time.Duration `yaml:"stall_timeout" envconfig:"STREAM_STALL_TIMEOUT"`
	MaxDuration           time.Duration `yaml:"max_duration" envconfig:"STREAM_MAX_DURATION"` // 0 disables
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			LogLevel:        "info",
		},
		Upstream: UpstreamConfig{
			EmbedURL:     "https://luluvid.com/e/" + RefPlaceholder,
			Referer:      "https://luluvid.com/",
			Origin:       "https://luluvid.com",
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PageTimeout:  20 * time.Second,
			ProbeTimeout: 10 * time.Second,
			MaxPageBytes: 5 * 1024 * 1024,
			CDNTemplates: []string{
				"https://m3.lulucdn.com/" + RefPlaceholder + ".mp4",
				"https://v.lulucdn.com/" + RefPlaceholder + ".mp4",
				"https://cdn.lulucdn.com/" + RefPlaceholder + ".mp4",
				"https://s1.lulucdn.com/" + RefPlaceholder + ".mp4",
				"https://stream.lulucdn.com/" + RefPlaceholder + ".mp4",
			},
			VideoExtensions: []string{"mp4", "webm", "mkv", "mov", "m4v"},
		},
		Cache: CacheConfig{
			TTL:           time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Stream: StreamConfig{
			ResponseHeaderTimeout: 30 * time.Second,
			StallTimeout:          60 * time.Second,
			MaxDuration:           6 * time.Hour,
		},
	}
}

// Load reads configuration from defaults, then the YAML file, then
// environment variables. Later sources override earlier ones.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Catalog.Path != "" && c.Catalog.SQLitePath != "" {
		return errors.New("CATALOG_PATH and CATALOG_SQLITE_PATH are mutually exclusive")
	}
	if !strings.Contains(c.Upstream.EmbedURL, RefPlaceholder) {
		return fmt.Errorf("UPSTREAM_EMBED_URL must contain %s", RefPlaceholder)
	}
	for _, tmpl := range c.Upstream.CDNTemplates {
		if !strings.Contains(tmpl, RefPlaceholder) {
			return fmt.Errorf("CDN template %q must contain %s", tmpl, RefPlaceholder)
		}
	}
	if len(c.Upstream.VideoExtensions) == 0 {
		return errors.New("UPSTREAM_VIDEO_EXTENSIONS must not be empty")
	}
	if c.Upstream.PageTimeout <= 0 {
		return errors.New("UPSTREAM_PAGE_TIMEOUT must be positive")
	}
	if c.Upstream.MaxPageBytes <= 0 {
		return errors.New("UPSTREAM_MAX_PAGE_BYTES must be positive")
	}

	durations := map[string]time.Duration{
		"SERVER_READ_TIMEOUT":            c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":           c.Server.WriteTimeout,
		"UPSTREAM_PROBE_TIMEOUT":         c.Upstream.ProbeTimeout,
		"CACHE_TTL":                      c.Cache.TTL,
		"CACHE_NEGATIVE_TTL":             c.Cache.NegativeTTL,
		"CACHE_SWEEP_INTERVAL":           c.Cache.SweepInterval,
		"STREAM_RESPONSE_HEADER_TIMEOUT": c.Stream.ResponseHeaderTimeout,
		"STREAM_STALL_TIMEOUT":           c.Stream.StallTimeout,
		"STREAM_MAX_DURATION":            c.Stream.MaxDuration,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EmbedURLFor substitutes ref into the embed page template.
func (c *UpstreamConfig) EmbedURLFor(ref string) string {
	return ExpandRef(c.EmbedURL, ref)
}

// ExpandRef substitutes a path-escaped ref into a URL template.
func ExpandRef(tmpl, ref string) string {
	return strings.ReplaceAll(tmpl, RefPlaceholder, url.PathEscape(ref))
}
