package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	Validation ValidationConfig `toml:"validation"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
}

// SourceConfig describes where articles come from and how the search query
// is built.
type SourceConfig struct {
	// Provider is either "newsapi" or "rss".
	Provider string `toml:"provider"`

	// Keywords are OR-ed together into the search query. For the RSS
	// provider they filter items by title/description match.
	Keywords []string `toml:"keywords"`

	// LookbackDays bounds the query's date range.
	LookbackDays int `toml:"lookback_days"`

	// MaxResults caps the batch size. NewsAPI's free tier allows at
	// most 100 per page.
	MaxResults int `toml:"max_results"`

	// APIKey authenticates against NewsAPI (or set NEWS_API_KEY).
	APIKey string `toml:"api_key"`

	// Endpoint is the NewsAPI search URL. Overridable for testing.
	Endpoint string `toml:"endpoint"`

	// Feeds lists RSS/Atom feed URLs for the "rss" provider.
	Feeds []string `toml:"feeds"`

	// ScrapeMissingDescriptions fetches a readable-text snippet for RSS
	// items that carry no description. Off by default because it issues
	// one extra HTTP request per bare item.
	ScrapeMissingDescriptions bool `toml:"scrape_missing_descriptions"`
}

// ValidationConfig holds the quality-gate thresholds.
type ValidationConfig struct {
	// MaxAgeDays is the freshness window: articles published more than
	// this many days before the run start are rejected as stale.
	MaxAgeDays int `toml:"max_age_days"`

	// MinContentLength is the minimum combined length of title and
	// description, in characters.
	MinContentLength int `toml:"min_content_length"`
}

// DatabaseConfig holds the analytical store location.
type DatabaseConfig struct {
	// Path to the SQLite database file. Empty means
	// <data-dir>/newspulse.db.
	Path string `toml:"path"`
}

// ServerConfig holds query-API settings for serve mode.
type ServerConfig struct {
	Port int `toml:"port"`
}

const defaultConfigContent = `[source]
provider = "newsapi"                  # "newsapi" or "rss"
keywords = ["stocks", "market", "finance", "economy"]
lookback_days = 7
max_results = 100                     # NewsAPI free tier caps at 100
api_key = ""                          # or set NEWS_API_KEY env var
endpoint = "https://newsapi.org/v2/everything"
feeds = []                            # used by the "rss" provider
scrape_missing_descriptions = false

[validation]
max_age_days = 7
min_content_length = 30

[database]
path = ""                             # defaults to <data-dir>/newspulse.db

[server]
port = 8080
`

// Load reads and parses the TOML config from the given path. If the file
// does not exist, it creates a default config file at that path. The
// NEWS_API_KEY environment variable overrides the file's api_key with
// highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "max_results = 0" is an error rather than
	// silently being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "lookback_days = 0" which would otherwise be
// silently replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("source", "lookback_days") {
		if cfg.Source.LookbackDays < 1 {
			return fmt.Errorf("invalid source.lookback_days %d: must be >= 1", cfg.Source.LookbackDays)
		}
	}
	if md.IsDefined("source", "max_results") {
		if cfg.Source.MaxResults < 1 || cfg.Source.MaxResults > 100 {
			return fmt.Errorf("invalid source.max_results %d: must be between 1 and 100", cfg.Source.MaxResults)
		}
	}
	if md.IsDefined("validation", "max_age_days") {
		if cfg.Validation.MaxAgeDays < 1 {
			return fmt.Errorf("invalid validation.max_age_days %d: must be >= 1", cfg.Validation.MaxAgeDays)
		}
	}
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Source.Provider == "" {
		cfg.Source.Provider = "newsapi"
	}
	if len(cfg.Source.Keywords) == 0 {
		cfg.Source.Keywords = []string{"stocks", "market", "finance", "economy"}
	}
	if cfg.Source.LookbackDays == 0 {
		cfg.Source.LookbackDays = 7
	}
	if cfg.Source.MaxResults == 0 {
		cfg.Source.MaxResults = 100
	}
	if cfg.Source.Endpoint == "" {
		cfg.Source.Endpoint = "https://newsapi.org/v2/everything"
	}
	if cfg.Validation.MaxAgeDays == 0 {
		cfg.Validation.MaxAgeDays = 7
	}
	if cfg.Validation.MinContentLength == 0 {
		cfg.Validation.MinContentLength = 30
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// applyEnvOverrides applies environment variable overrides. NEWS_API_KEY
// takes priority over the config file's api_key.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	switch cfg.Source.Provider {
	case "newsapi", "rss":
		// valid
	default:
		return fmt.Errorf("invalid source.provider %q: must be \"newsapi\" or \"rss\"", cfg.Source.Provider)
	}

	if cfg.Source.Provider == "rss" && len(cfg.Source.Feeds) == 0 {
		return fmt.Errorf("source.provider is \"rss\" but source.feeds is empty")
	}

	if cfg.Source.LookbackDays < 1 {
		return fmt.Errorf("invalid source.lookback_days %d: must be >= 1", cfg.Source.LookbackDays)
	}

	if cfg.Validation.MinContentLength < 0 {
		return fmt.Errorf("invalid validation.min_content_length %d: must be >= 0", cfg.Validation.MinContentLength)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if cfg.Source.Provider == "newsapi" && cfg.Source.APIKey == "" {
		slog.Warn("source.api_key is empty: set it in the config file or via NEWS_API_KEY environment variable")
	}

	return nil
}
