package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the profile sync tool
type Config struct {
	// Site holds the scraped site settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Sheets holds the remote spreadsheet store settings
	Sheets SheetsConfig `yaml:"sheets" json:"sheets"`

	// RateLimit holds page-fetch rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry holds the write executor retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Sync holds per-run processing settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds settings for the scraped site
type SiteConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Username    string        `yaml:"username" json:"username"`
	Password    string        `yaml:"password" json:"password"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`
}

// SheetsConfig holds settings for the spreadsheet-shaped remote store
type SheetsConfig struct {
	BaseURL       string        `yaml:"base_url" json:"base_url"`
	SpreadsheetID string        `yaml:"spreadsheet_id" json:"spreadsheet_id"`
	Token         string        `yaml:"token" json:"token"`
	ProfilesTab   string        `yaml:"profiles_tab" json:"profiles_tab"`
	TargetTab     string        `yaml:"target_tab" json:"target_tab"`
	TagsTab       string        `yaml:"tags_tab" json:"tags_tab"`
	LogTab        string        `yaml:"log_tab" json:"log_tab"`
	DashboardTab  string        `yaml:"dashboard_tab" json:"dashboard_tab"`
	WriteDelay    time.Duration `yaml:"write_delay" json:"write_delay"`
	CallTimeout   time.Duration `yaml:"call_timeout" json:"call_timeout"`
}

// RateLimitConfig holds page-fetch rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds the bounded retry policy for remote writes
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base" json:"backoff_base"`
}

// SyncConfig holds per-run processing settings
type SyncConfig struct {
	MaxPerRun int           `yaml:"max_per_run" json:"max_per_run"`
	BatchSize int           `yaml:"batch_size" json:"batch_size"`
	MinDelay  time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay  time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     "https://damadam.pk",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			PageTimeout: 30 * time.Second,
		},
		Sheets: SheetsConfig{
			ProfilesTab:  "Profiles",
			TargetTab:    "Target",
			TagsTab:      "Tags",
			LogTab:       "Logs",
			DashboardTab: "Dashboard",
			WriteDelay:   800 * time.Millisecond,
			CallTimeout:  30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: 5 * time.Second,
		},
		Sync: SyncConfig{
			MaxPerRun: 0, // unlimited
			BatchSize: 20,
			MinDelay:  400 * time.Millisecond,
			MaxDelay:  600 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("PROFILESYNC_SITE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if username := os.Getenv("PROFILESYNC_USERNAME"); username != "" {
		c.Site.Username = username
	}
	if password := os.Getenv("PROFILESYNC_PASSWORD"); password != "" {
		c.Site.Password = password
	}
	if userAgent := os.Getenv("PROFILESYNC_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}

	if baseURL := os.Getenv("PROFILESYNC_SHEETS_URL"); baseURL != "" {
		c.Sheets.BaseURL = baseURL
	}
	if sheetID := os.Getenv("PROFILESYNC_SPREADSHEET_ID"); sheetID != "" {
		c.Sheets.SpreadsheetID = sheetID
	}
	if token := os.Getenv("PROFILESYNC_SHEETS_TOKEN"); token != "" {
		c.Sheets.Token = token
	}
	if delay := os.Getenv("PROFILESYNC_WRITE_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d >= 0 {
			c.Sheets.WriteDelay = d
		}
	}

	if rpm := os.Getenv("PROFILESYNC_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if maxPerRun := os.Getenv("PROFILESYNC_MAX_PER_RUN"); maxPerRun != "" {
		var val int
		fmt.Sscanf(maxPerRun, "%d", &val)
		if val >= 0 {
			c.Sync.MaxPerRun = val
		}
	}
	if batchSize := os.Getenv("PROFILESYNC_BATCH_SIZE"); batchSize != "" {
		var val int
		fmt.Sscanf(batchSize, "%d", &val)
		if val > 0 {
			c.Sync.BatchSize = val
		}
	}

	if logLevel := os.Getenv("PROFILESYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".profilesync.yaml",
		".profilesync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "profilesync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "profilesync", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".profilesync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}

	if c.Sheets.BaseURL == "" {
		errs = append(errs, errors.New("sheets API base URL is required"))
	}
	if c.Sheets.SpreadsheetID == "" {
		errs = append(errs, errors.New("spreadsheet ID is required"))
	}
	if c.Sheets.ProfilesTab == "" || c.Sheets.TargetTab == "" {
		errs = append(errs, errors.New("profiles and target tab names are required"))
	}
	if c.Sheets.WriteDelay < 0 {
		errs = append(errs, errors.New("write delay cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.BackoffBase <= 0 {
		errs = append(errs, errors.New("retry backoff base must be positive"))
	}

	if c.Sync.MaxPerRun < 0 {
		errs = append(errs, errors.New("max per run cannot be negative"))
	}
	if c.Sync.MinDelay > c.Sync.MaxDelay {
		errs = append(errs, errors.New("min delay cannot exceed max delay"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sheetID, ok := flags["spreadsheet-id"].(string); ok && sheetID != "" {
		c.Sheets.SpreadsheetID = sheetID
	}
	if token, ok := flags["sheets-token"].(string); ok && token != "" {
		c.Sheets.Token = token
	}
	if maxPerRun, ok := flags["max-per-run"].(int); ok && maxPerRun >= 0 {
		c.Sync.MaxPerRun = maxPerRun
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Sync.BatchSize = batchSize
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".profilesync.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
