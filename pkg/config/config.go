package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultOAuthBaseURL is the host every bearer-token request goes to
	DefaultOAuthBaseURL = "https://oauth.reddit.com"

	// MaxPageLimit is the largest page size the listing endpoint accepts
	MaxPageLimit = 100
)

// Config holds all configuration options for redditsaver
type Config struct {
	// Reddit account and API settings
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Paginated fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Opt-in per-page retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Export settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Bulk unsave settings
	Unsave UnsaveConfig `yaml:"unsave" json:"unsave"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig holds Reddit-specific configuration
type RedditConfig struct {
	Username       string    `yaml:"username" json:"username"`
	AccessToken    string    `yaml:"access_token" json:"access_token"`
	TokenExpiresAt time.Time `yaml:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
	UserAgent      string    `yaml:"user_agent" json:"user_agent"`
	AppName        string    `yaml:"app_name" json:"app_name"`
	OAuthBaseURL   string    `yaml:"oauth_base_url" json:"oauth_base_url"`
}

// FetchConfig bounds the saved-items retrieval loop
type FetchConfig struct {
	PageLimit   int           `yaml:"page_limit" json:"page_limit"`
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`
	MaxPages    int           `yaml:"max_pages" json:"max_pages"`
	MaxItems    int           `yaml:"max_items" json:"max_items"`
}

// RetryConfig holds retry configuration. Disabled means fail-fast.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds export configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Format    string `yaml:"format" json:"format"`
	Pretty    bool   `yaml:"pretty" json:"pretty"`
}

// UnsaveConfig holds bulk unsave configuration
type UnsaveConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// MetricsConfig holds the Prometheus listener configuration
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			AppName:      "redditsaver",
			OAuthBaseURL: DefaultOAuthBaseURL,
		},
		Fetch: FetchConfig{
			PageLimit:   MaxPageLimit,
			PageTimeout: 30 * time.Second,
			MaxPages:    1000,
			MaxItems:    0, // 0 means no limit
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Output: OutputConfig{
			Directory: "./saved",
			Format:    "json",
			Pretty:    true,
		},
		Unsave: UnsaveConfig{
			Concurrency: 3,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("REDDITSAVER_USERNAME"); username != "" {
		c.Reddit.Username = username
	}
	if token := os.Getenv("REDDITSAVER_ACCESS_TOKEN"); token != "" {
		c.Reddit.AccessToken = token
	}
	if userAgent := os.Getenv("REDDITSAVER_USER_AGENT"); userAgent != "" {
		c.Reddit.UserAgent = userAgent
	}
	if baseURL := os.Getenv("REDDITSAVER_OAUTH_BASE_URL"); baseURL != "" {
		c.Reddit.OAuthBaseURL = baseURL
	}

	if maxPages := os.Getenv("REDDITSAVER_MAX_PAGES"); maxPages != "" {
		val, err := strconv.Atoi(maxPages)
		if err != nil {
			return fmt.Errorf("invalid REDDITSAVER_MAX_PAGES: %w", err)
		}
		if val > 0 {
			c.Fetch.MaxPages = val
		}
	}

	if retryEnabled := os.Getenv("REDDITSAVER_RETRY_ENABLED"); retryEnabled != "" {
		c.Retry.Enabled = strings.ToLower(retryEnabled) == "true"
	}

	if outputDir := os.Getenv("REDDITSAVER_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	if logLevel := os.Getenv("REDDITSAVER_LOG_LEVEL"); logLevel != "" {
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
	home := os.Getenv("HOME")
	locations := []string{
		".redditsaver.yaml",
		".redditsaver.yml",
		filepath.Join(home, ".config", "redditsaver", "config.yaml"),
		filepath.Join(home, ".config", "redditsaver", "config.yml"),
		filepath.Join(home, ".redditsaver.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// Credentials are not checked here; the auth manager may still supply them.
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.OAuthBaseURL == "" {
		errs = append(errs, errors.New("oauth base url is required"))
	} else if !strings.HasPrefix(c.Reddit.OAuthBaseURL, "http://") && !strings.HasPrefix(c.Reddit.OAuthBaseURL, "https://") {
		errs = append(errs, errors.New("oauth base url must be an http(s) url"))
	}

	if c.Fetch.PageLimit <= 0 || c.Fetch.PageLimit > MaxPageLimit {
		errs = append(errs, fmt.Errorf("page limit must be between 1 and %d", MaxPageLimit))
	}
	if c.Fetch.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}
	if c.Fetch.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Fetch.MaxItems < 0 {
		errs = append(errs, errors.New("max items cannot be negative"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
			errs = append(errs, errors.New("retry delays are inconsistent"))
		}
		if c.Retry.Multiplier < 1 {
			errs = append(errs, errors.New("retry multiplier must be at least 1"))
		}
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	validFormats := map[string]bool{"json": true, "yaml": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		errs = append(errs, errors.New("invalid output format"))
	}

	if c.Unsave.Concurrency <= 0 {
		errs = append(errs, errors.New("unsave concurrency must be positive"))
	}
	if c.Unsave.Concurrency > 10 {
		errs = append(errs, errors.New("unsave concurrency should not exceed 10"))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, errors.New("metrics listen address is required when metrics are enabled"))
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
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Reddit.Username = username
	}
	if token, ok := flags["access-token"].(string); ok && token != "" {
		c.Reddit.AccessToken = token
	}
	if baseURL, ok := flags["oauth-base-url"].(string); ok && baseURL != "" {
		c.Reddit.OAuthBaseURL = baseURL
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Fetch.MaxPages = maxPages
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Fetch.MaxItems = maxItems
	}
	if timeout, ok := flags["page-timeout"].(int); ok && timeout > 0 {
		c.Fetch.PageTimeout = time.Duration(timeout) * time.Second
	}
	if retry, ok := flags["retry"].(bool); ok {
		c.Retry.Enabled = retry
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Output.Format = format
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Unsave.Concurrency = concurrency
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Enabled = true
		c.Metrics.ListenAddr = addr
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
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditsaver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
