package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/problemradar/problem-radar/internal/query"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port     string
	Debug    bool
	LogLevel string

	// Dataset storage configuration
	StorageBackend   string // "local" or "azure"
	LocalStorageDir  string
	StorageAccount   string
	StorageContainer string
	SnapshotURL      string
	SnapshotHistory  int // timestamped snapshots kept in storage

	// Discovery configuration
	DiscoveryEnabled     bool
	DiscoverySchedule    string // cron expression with seconds
	DiscoveryWindowHours int
	Keywords             []string
	Subreddits           []string
	ForumFeeds           []ForumFeed

	// API keys and credentials
	RedditClientID     string
	RedditClientSecret string
	AnthropicAPIKey    string
	AnthropicModel     string

	// Digest notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Urgency band thresholds; badges and the search filter are tuned separately
	BadgeHighThreshold    int
	BadgeMediumThreshold  int
	FilterHighThreshold   int
	FilterMediumThreshold int
}

// ForumFeed is an RSS or Atom feed of a community forum
type ForumFeed struct {
	Name string
	URL  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Debug:    getBoolEnv("DEBUG", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageBackend:   getEnv("STORAGE_BACKEND", "local"),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "data"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "problems"),
		SnapshotURL:      getEnv("SNAPSHOT_URL", ""),
		SnapshotHistory:  getIntEnv("SNAPSHOT_HISTORY", 48),

		DiscoveryEnabled:     getBoolEnv("DISCOVERY_ENABLED", false),
		DiscoverySchedule:    getEnv("DISCOVERY_SCHEDULE", "0 0 */6 * * *"),
		DiscoveryWindowHours: getIntEnv("DISCOVERY_WINDOW_HOURS", 24),
		Keywords: getSliceEnv("KEYWORDS", []string{
			"looking for a tool",
			"too expensive",
			"is there an alternative",
			"struggling with",
		}),
		Subreddits: getSliceEnv("SUBREDDITS", []string{
			"smallbusiness",
			"Entrepreneur",
			"startups",
			"marketing",
			"SaaS",
			"freelance",
			"CustomerSuccess",
		}),
		ForumFeeds: parseForumFeeds(getEnv("FORUM_FEEDS", "")),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		BadgeHighThreshold:    getIntEnv("URGENCY_HIGH", 80),
		BadgeMediumThreshold:  getIntEnv("URGENCY_MEDIUM", 60),
		FilterHighThreshold:   getIntEnv("FILTER_URGENCY_HIGH", 80),
		FilterMediumThreshold: getIntEnv("FILTER_URGENCY_MEDIUM", 60),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "local":
		if c.LocalStorageDir == "" {
			return fmt.Errorf("LOCAL_STORAGE_DIR is required for the local storage backend")
		}
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required for the azure storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'local' or 'azure'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.SnapshotHistory <= 0 {
		return fmt.Errorf("SNAPSHOT_HISTORY must be positive")
	}

	if c.DiscoveryWindowHours <= 0 {
		return fmt.Errorf("DISCOVERY_WINDOW_HOURS must be positive")
	}

	if err := c.BadgeThresholds().Validate(); err != nil {
		return fmt.Errorf("URGENCY_HIGH/URGENCY_MEDIUM: %w", err)
	}
	if err := c.FilterThresholds().Validate(); err != nil {
		return fmt.Errorf("FILTER_URGENCY_HIGH/FILTER_URGENCY_MEDIUM: %w", err)
	}
	return nil
}

// BadgeThresholds are the urgency bands used for display badges
func (c *Config) BadgeThresholds() query.Thresholds {
	return query.Thresholds{High: c.BadgeHighThreshold, Medium: c.BadgeMediumThreshold}
}

// FilterThresholds are the urgency bands used by the search filter
func (c *Config) FilterThresholds() query.Thresholds {
	return query.Thresholds{High: c.FilterHighThreshold, Medium: c.FilterMediumThreshold}
}

// parseForumFeeds reads "name=url,name=url"; entries without a name use the URL
func parseForumFeeds(value string) []ForumFeed {
	var feeds []ForumFeed
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, found := strings.Cut(entry, "=")
		if !found {
			feeds = append(feeds, ForumFeed{Name: entry, URL: entry})
			continue
		}
		feeds = append(feeds, ForumFeed{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return feeds
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

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValue
}
