package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port      string `envconfig:"PORT" default:"8080"`
	GinMode   string `envconfig:"GIN_MODE" default:"release"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// External services
	MusicBrainzURL string        `envconfig:"MUSICBRAINZ_URL" default:"https://musicbrainz.org/ws/2"`
	CoverArtURL    string        `envconfig:"COVERART_URL" default:"https://coverartarchive.org"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"songmeta/1.0 (+https://github.com/songmeta/songmeta)"`
	RequestDelay   time.Duration `envconfig:"REQUEST_DELAY" default:"1100ms"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	SearchLimit    int           `envconfig:"SEARCH_LIMIT" default:"10"`
	SearchCacheTTL time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"24h"`

	// Storage (both optional; the pipeline runs without them)
	MongodbURL      string `envconfig:"MONGODB_URL"`
	MongodbDatabase string `envconfig:"MONGODB_DATABASE" default:"songmeta"`
	ValkeyURL       string `envconfig:"VALKEY_URL"`

	// Admin routes are only mounted when a secret is configured
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`

	MatchingConfigPath string `envconfig:"MATCHING_CONFIG_PATH"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks value ranges and URL shapes
func (c *Config) Validate() error {
	if c.SearchLimit <= 0 || c.SearchLimit > 100 {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and 100, got %d", c.SearchLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("REQUEST_DELAY cannot be negative")
	}
	if c.SearchCacheTTL < 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL cannot be negative")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("USER_AGENT cannot be empty")
	}

	for name, raw := range map[string]string{
		"MUSICBRAINZ_URL": c.MusicBrainzURL,
		"COVERART_URL":    c.CoverArtURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}

	return nil
}

// HasStorage reports whether match records can be persisted
func (c *Config) HasStorage() bool {
	return c.MongodbURL != ""
}

// HasCache reports whether a shared Valkey cache is configured
func (c *Config) HasCache() bool {
	return c.ValkeyURL != ""
}

// AdminEnabled reports whether admin routes should be mounted
func (c *Config) AdminEnabled() bool {
	return c.AdminJWTSecret != ""
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in URL")
	}
	return nil
}
