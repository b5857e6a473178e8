package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig writes TOML content to a temp file and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTestConfig(t, `[source]
provider = "newsapi"
keywords = ["tech", "ai"]
lookback_days = 3
max_results = 25
api_key = "file-key"
endpoint = "https://example.com/v2/everything"

[validation]
max_age_days = 5
min_content_length = 40

[database]
path = "/tmp/custom.db"

[server]
port = 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.Provider != "newsapi" {
		t.Errorf("Provider = %q, want newsapi", cfg.Source.Provider)
	}
	if len(cfg.Source.Keywords) != 2 || cfg.Source.Keywords[0] != "tech" {
		t.Errorf("Keywords = %v, want [tech ai]", cfg.Source.Keywords)
	}
	if cfg.Source.LookbackDays != 3 {
		t.Errorf("LookbackDays = %d, want 3", cfg.Source.LookbackDays)
	}
	if cfg.Source.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.Source.MaxResults)
	}
	if cfg.Source.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.Source.APIKey)
	}
	if cfg.Validation.MaxAgeDays != 5 || cfg.Validation.MinContentLength != 40 {
		t.Errorf("validation = %d/%d, want 5/40",
			cfg.Validation.MaxAgeDays, cfg.Validation.MinContentLength)
	}
	if cfg.Database.Path != "/tmp/custom.db" {
		t.Errorf("Database.Path = %q, want /tmp/custom.db", cfg.Database.Path)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoad_MissingFileCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not created at %q: %v", path, err)
	}

	if cfg.Source.Provider != "newsapi" {
		t.Errorf("Provider = %q, want newsapi", cfg.Source.Provider)
	}
	if cfg.Source.LookbackDays != 7 || cfg.Source.MaxResults != 100 {
		t.Errorf("source defaults = %d/%d, want 7/100",
			cfg.Source.LookbackDays, cfg.Source.MaxResults)
	}
	if cfg.Validation.MaxAgeDays != 7 || cfg.Validation.MinContentLength != 30 {
		t.Errorf("validation defaults = %d/%d, want 7/30",
			cfg.Validation.MaxAgeDays, cfg.Validation.MinContentLength)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_EmptyFileGetsDefaults(t *testing.T) {
	path := writeTestConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.Provider != "newsapi" {
		t.Errorf("Provider = %q, want newsapi", cfg.Source.Provider)
	}
	if len(cfg.Source.Keywords) == 0 {
		t.Error("Keywords empty, want defaults")
	}
	if cfg.Source.Endpoint != "https://newsapi.org/v2/everything" {
		t.Errorf("Endpoint = %q, want the NewsAPI default", cfg.Source.Endpoint)
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	path := writeTestConfig(t, `[source]
api_key = "file-key"
`)
	t.Setenv("NEWS_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want the environment override", cfg.Source.APIKey)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "[source]\nprovider = \"carrier-pigeon\"\n"},
		{"rss without feeds", "[source]\nprovider = \"rss\"\n"},
		{"explicit zero lookback", "[source]\nlookback_days = 0\n"},
		{"max_results over cap", "[source]\nmax_results = 500\n"},
		{"explicit zero max_age", "[validation]\nmax_age_days = 0\n"},
		{"port out of range", "[server]\nport = 70000\n"},
		{"malformed toml", "[source\nprovider = newsapi\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Load() succeeded, want error for %s", tt.name)
			}
		})
	}
}

func TestLoad_RSSProviderWithFeeds(t *testing.T) {
	path := writeTestConfig(t, `[source]
provider = "rss"
feeds = ["https://example.com/feed.xml"]
scrape_missing_descriptions = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source.Provider != "rss" {
		t.Errorf("Provider = %q, want rss", cfg.Source.Provider)
	}
	if len(cfg.Source.Feeds) != 1 {
		t.Errorf("Feeds = %v, want one entry", cfg.Source.Feeds)
	}
	if !cfg.Source.ScrapeMissingDescriptions {
		t.Error("ScrapeMissingDescriptions = false, want true")
	}
}
