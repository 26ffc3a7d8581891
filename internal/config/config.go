package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Debug          bool
	AllowedOrigins []string

	// Remote model configuration
	AIProvider     string // "none", "openai", "anthropic" or "workers"
	AIAPIKey       string
	AIBaseURL      string
	AIAccountID    string
	AIModelPrimary string
	AIModelFast    string
	AITimeout      time.Duration

	// Record store configuration
	StorageBackend string // "memory", "sqlite" or "postgres"
	DatabasePath   string
	DatabaseURL    string
	SeedMockData   bool

	// Analysis cache configuration
	CacheAddress  string
	CachePassword string
	CacheTLS      bool
	CacheTTL      time.Duration

	// Report archive configuration
	ArchiveBackend   string // "none", "file" or "azure"
	ArchiveDir       string
	StorageAccount   string
	StorageContainer string
	ArchiveRetention int // snapshots kept; 0 keeps all

	// Notification configuration
	TeamsWebhookURL       string
	NotificationEmail     string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	AlertUrgencyThreshold float64

	// Schedule configuration
	ReportSchedule string // "daily" or "weekly"
	IngestInterval time.Duration

	// Source credentials
	TwitterBearerToken string
	TwitterQuery       string
	GitHubToken        string
	GitHubRepos        []string
	ForumTags          []string
}

// Default model identifiers per provider, primary tier first
var defaultModels = map[string][2]string{
	"openai":    {"gpt-4o", "gpt-4o-mini"},
	"anthropic": {"claude-sonnet-4-5", "claude-haiku-4-5"},
	"workers":   {"@cf/meta/llama-3.1-70b-instruct", "@cf/meta/llama-3.1-8b-instruct"},
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	provider := strings.ToLower(getEnv("AI_PROVIDER", "none"))
	models := defaultModels[provider]

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		AllowedOrigins: getSliceEnv("ALLOWED_ORIGINS", []string{"*"}),

		AIProvider:     provider,
		AIAPIKey:       getEnv("AI_API_KEY", ""),
		AIBaseURL:      getEnv("AI_BASE_URL", ""),
		AIAccountID:    getEnv("AI_ACCOUNT_ID", ""),
		AIModelPrimary: getEnv("AI_MODEL_PRIMARY", models[0]),
		AIModelFast:    getEnv("AI_MODEL_FAST", models[1]),
		AITimeout:      getDurationEnv("AI_TIMEOUT", 30*time.Second),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "memory")),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/feedback.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SeedMockData:   getBoolEnv("SEED_MOCK_DATA", true),

		CacheAddress:  getEnv("CACHE_ADDRESS", ""),
		CachePassword: getEnv("CACHE_PASSWORD", ""),
		CacheTLS:      getBoolEnv("CACHE_TLS", false),
		CacheTTL:      getDurationEnv("CACHE_TTL", 24*time.Hour),

		ArchiveBackend:   strings.ToLower(getEnv("ARCHIVE_BACKEND", "none")),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "./data/reports"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "insights"),
		ArchiveRetention: getIntEnv("ARCHIVE_RETENTION", 30),

		TeamsWebhookURL:       getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail:     getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getIntEnv("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		AlertUrgencyThreshold: getFloatEnv("ALERT_URGENCY_THRESHOLD", 8),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),
		IngestInterval: getDurationEnv("INGEST_INTERVAL", time.Hour),

		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterQuery:       getEnv("TWITTER_QUERY", ""),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubRepos:        getSliceEnv("GITHUB_REPOS", nil),
		ForumTags:          getSliceEnv("FORUM_TAGS", nil),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AIProvider {
	case "none":
	case "openai", "anthropic":
		if c.AIAPIKey == "" {
			return fmt.Errorf("AI_API_KEY is required when AI_PROVIDER is %s", c.AIProvider)
		}
	case "workers":
		if c.AIAPIKey == "" || (c.AIAccountID == "" && c.AIBaseURL == "") {
			return fmt.Errorf("AI_API_KEY and AI_ACCOUNT_ID (or AI_BASE_URL) are required when AI_PROVIDER is workers")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be one of none, openai, anthropic, workers")
	}

	switch c.StorageBackend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, sqlite, postgres")
	}

	switch c.ArchiveBackend {
	case "none", "file":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when ARCHIVE_BACKEND is azure")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND must be one of none, file, azure")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.AlertUrgencyThreshold < 0 || c.AlertUrgencyThreshold > 10 {
		return fmt.Errorf("ALERT_URGENCY_THRESHOLD must be between 0 and 10")
	}

	if c.IngestInterval < time.Minute {
		return fmt.Errorf("INGEST_INTERVAL must be at least 1m")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
