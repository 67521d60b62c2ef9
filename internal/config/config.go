package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the pipeline needs, loaded once at startup and
// passed down explicitly. Every credential is optional: a missing key turns
// the corresponding stage into a no-op instead of an error.
type Config struct {
	// Translation
	OpenAIAPIKey        string
	OpenAIModel         string
	TargetLanguages     []string // page language codes to translate into
	MaxAIRequests       int      // per-run budget across AI providers (0 = unlimited)
	RateLimitBackoff    time.Duration
	TranslationCacheTTL time.Duration

	// Gemini summary enrichment (optional)
	GeminiAPIKey string

	// Publishing
	GitHubToken    string
	GitHubRepo     string
	GitHubUsername string
	SiteDomain     string // written into CNAME and sitemap URLs

	// Email notification
	SMTPHost      string
	SMTPPort      string
	FromEmail     string
	ToEmail       string
	EmailPassword string

	// Sources / files
	SourcesConfigPath    string
	SeenFilePath         string
	MessagesFilePath     string
	SubscribersFilePath  string
	TranslationCachePath string
	StoreBackend         string // "file" or "sqlite"
	SQLitePath           string

	// Deduplication
	SeenMaxEntries      int
	SeenMaxAgeDays      int
	SimilarityThreshold float64
	SimilarityInclusive bool // duplicate when similarity >= threshold (vs strictly >)

	// Run behavior
	RequestTimeout  time.Duration
	SourceDelay     time.Duration
	TranslateDelay  time.Duration
	ServeMode       bool
	RunInterval     time.Duration
	MonitoringPort  string
	MaxItemsPerPage int

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		OpenAIModel:          "gpt-4o-mini",
		TargetLanguages:      []string{"en", "he", "ru", "el"},
		MaxAIRequests:        50,
		RateLimitBackoff:     10 * time.Second,
		TranslationCacheTTL:  30 * 24 * time.Hour,
		SourcesConfigPath:    "configs/sources.json",
		SeenFilePath:         "data/seen_articles.json",
		MessagesFilePath:     "data/processed_messages.json",
		SubscribersFilePath:  "data/subscribers.json",
		TranslationCachePath: "data/translation_cache.json",
		StoreBackend:         "file",
		SQLitePath:           "data/cynews.db",
		SeenMaxEntries:       500,
		SeenMaxAgeDays:       30,
		SimilarityThreshold:  0.8,
		SimilarityInclusive:  true,
		RequestTimeout:       30 * time.Second,
		SourceDelay:          2 * time.Second,
		TranslateDelay:       1 * time.Second,
		RunInterval:          time.Hour,
		MonitoringPort:       "8080",
		MaxItemsPerPage:      30,
		SiteDomain:           "cyprusnews.example.com",
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubRepo = os.Getenv("GITHUB_REPO")
	cfg.GitHubUsername = os.Getenv("GITHUB_USERNAME")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvOrDefault("SMTP_PORT", "587")
	cfg.FromEmail = os.Getenv("FROM_EMAIL")
	cfg.ToEmail = os.Getenv("TO_EMAIL")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")

	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.SeenFilePath = getEnvOrDefault("SEEN_FILE_PATH", cfg.SeenFilePath)
	cfg.MessagesFilePath = getEnvOrDefault("MESSAGES_PATH", cfg.MessagesFilePath)
	cfg.SubscribersFilePath = getEnvOrDefault("SUBSCRIBERS_PATH", cfg.SubscribersFilePath)
	cfg.TranslationCachePath = getEnvOrDefault("TRANSLATION_CACHE_PATH", cfg.TranslationCachePath)
	cfg.StoreBackend = getEnvOrDefault("STORE_BACKEND", cfg.StoreBackend)
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)
	cfg.SiteDomain = getEnvOrDefault("SITE_DOMAIN", cfg.SiteDomain)

	cfg.SeenMaxEntries = getEnvIntOrDefault("SEEN_MAX_ENTRIES", cfg.SeenMaxEntries)
	cfg.SeenMaxAgeDays = getEnvIntOrDefault("SEEN_MAX_AGE_DAYS", cfg.SeenMaxAgeDays)
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)
	cfg.MaxItemsPerPage = getEnvIntOrDefault("MAX_ITEMS_PER_PAGE", cfg.MaxItemsPerPage)

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 && val <= 1 {
			cfg.SimilarityThreshold = val
		}
	}
	if v := os.Getenv("SIMILARITY_INCLUSIVE"); v != "" {
		cfg.SimilarityInclusive = v == "true"
	}
	if v := os.Getenv("RATE_LIMIT_BACKOFF_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RateLimitBackoff = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("SOURCE_DELAY_MS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.SourceDelay = time.Duration(val) * time.Millisecond
		}
	}
	if v := os.Getenv("RUN_INTERVAL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RunInterval = time.Duration(val) * time.Minute
		}
	}

	if os.Getenv("SERVE_MODE") == "true" {
		cfg.ServeMode = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.SourcesConfigPath == "" {
		return fmt.Errorf("sources config path must not be empty")
	}
	if c.StoreBackend != "file" && c.StoreBackend != "sqlite" {
		return fmt.Errorf("STORE_BACKEND must be 'file' or 'sqlite', got %q", c.StoreBackend)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if len(c.TargetLanguages) == 0 {
		return fmt.Errorf("at least one target language is required")
	}
	return nil
}

// TranslationEnabled reports whether the OpenAI-backed translator can run.
func (c *Config) TranslationEnabled() bool { return c.OpenAIAPIKey != "" }

// PublishEnabled reports whether GitHub publishing is configured.
func (c *Config) PublishEnabled() bool {
	return c.GitHubToken != "" && c.GitHubRepo != "" && c.GitHubUsername != ""
}

// EmailEnabled reports whether the notification mail can be sent.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.FromEmail != "" && c.ToEmail != "" && c.EmailPassword != ""
}
