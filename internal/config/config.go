// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// ServerConfig holds the records server connection settings
type ServerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Timeout  string `yaml:"timeout"` // per-request timeout (e.g., "30s")
}

// CacheConfig holds per-family TTL settings as duration strings
type CacheConfig struct {
	ListTTL   string `yaml:"list_ttl"`   // listing entries (default: "5m")
	RecordTTL string `yaml:"record_ttl"` // single-record entries (default: "5m")
	StatsTTL  string `yaml:"stats_ttl"`  // statistics aggregate (default: "1m")
}

// RefreshConfig holds background refresh settings
type RefreshConfig struct {
	Enabled       *bool  `yaml:"enabled"`        // auto-refresh stale cache entries (default: true)
	Interval      string `yaml:"interval"`       // refresh scan interval (default: "30s")
	ProbeInterval string `yaml:"probe_interval"` // connectivity probe interval (default: "15s")
}

// UIConfig holds user interface settings
type UIConfig struct {
	PageSize int `yaml:"page_size"` // records per page (default: 20)
}

// ExportConfig holds export settings
type ExportConfig struct {
	Dir string `yaml:"dir"` // default export directory (default: XDG data dir)
}

// AnalyticsConfig holds usage analytics settings
type AnalyticsConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	RefreshEnabled *bool `yaml:"refresh_enabled"` // refresh log file creation (default: true)
}

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	UI        UIConfig        `yaml:"ui"`
	Export    ExportConfig    `yaml:"export"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	NoPrompt  bool            `yaml:"no_prompt"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{PageSize: 20},
		Analytics: AnalyticsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one with defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	if cfg.UI.PageSize == 0 {
		cfg.UI.PageSize = 20
	}
	if cfg.Export.Dir != "" {
		cfg.Export.Dir = ExpandPath(cfg.Export.Dir)
	}

	return cfg, nil
}

// save writes the configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation and comments
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.URL != "" {
		if !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
			return fmt.Errorf("invalid server.url: %q (must start with http:// or https://)", c.Server.URL)
		}
	}

	for name, value := range map[string]string{
		"server.timeout":         c.Server.Timeout,
		"cache.list_ttl":         c.Cache.ListTTL,
		"cache.record_ttl":       c.Cache.RecordTTL,
		"cache.stats_ttl":        c.Cache.StatsTTL,
		"refresh.interval":       c.Refresh.Interval,
		"refresh.probe_interval": c.Refresh.ProbeInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}

	if c.Refresh.Interval != "" {
		d, _ := time.ParseDuration(c.Refresh.Interval)
		if d < 5*time.Second {
			return fmt.Errorf("refresh.interval must be at least 5s, got %q", c.Refresh.Interval)
		}
	}

	if c.UI.PageSize < 0 {
		return fmt.Errorf("ui.page_size must be positive, got %d", c.UI.PageSize)
	}

	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(serverURL string, noPrompt bool) {
	if serverURL != "" {
		c.Server.URL = serverURL
	}
	if noPrompt {
		c.NoPrompt = true
	}
}

// GetServerTimeout returns the per-request timeout.
// Returns 30 seconds as default if not configured or if parsing fails.
func (c *Config) GetServerTimeout() time.Duration {
	return durationOr(c.Server.Timeout, 30*time.Second)
}

// GetListTTL returns the listing cache TTL (default: 5 minutes).
func (c *Config) GetListTTL() time.Duration {
	return durationOr(c.Cache.ListTTL, 5*time.Minute)
}

// GetRecordTTL returns the single-record cache TTL (default: 5 minutes).
func (c *Config) GetRecordTTL() time.Duration {
	return durationOr(c.Cache.RecordTTL, 5*time.Minute)
}

// GetStatsTTL returns the statistics cache TTL (default: 1 minute).
func (c *Config) GetStatsTTL() time.Duration {
	return durationOr(c.Cache.StatsTTL, time.Minute)
}

// IsRefreshEnabled returns true if background refresh is enabled.
// Defaults to true when not explicitly set.
func (c *Config) IsRefreshEnabled() bool {
	if c.Refresh.Enabled == nil {
		return true
	}
	return *c.Refresh.Enabled
}

// GetRefreshInterval returns the refresh scan interval (default: 30 seconds).
func (c *Config) GetRefreshInterval() time.Duration {
	return durationOr(c.Refresh.Interval, 30*time.Second)
}

// GetProbeInterval returns the connectivity probe interval (default: 15 seconds).
func (c *Config) GetProbeInterval() time.Duration {
	return durationOr(c.Refresh.ProbeInterval, 15*time.Second)
}

// GetPageSize returns the records-per-page setting (default: 20).
func (c *Config) GetPageSize() int {
	if c.UI.PageSize <= 0 {
		return 20
	}
	return c.UI.PageSize
}

// GetExportDir returns the default export directory.
func (c *Config) GetExportDir() string {
	if c.Export.Dir == "" {
		return GetDataDir()
	}
	return c.Export.Dir
}

// IsAnalyticsEnabled returns true if analytics is enabled in config
func (c *Config) IsAnalyticsEnabled() bool {
	return c.Analytics.Enabled
}

// GetAnalyticsRetentionDays returns the analytics retention period in days.
// Returns 365 (default) if not configured.
func (c *Config) GetAnalyticsRetentionDays() int {
	if c.Analytics.RetentionDays <= 0 {
		return 365
	}
	return c.Analytics.RetentionDays
}

// IsRefreshLoggingEnabled returns true if the refresh log file is enabled.
// Returns true (default) if not configured.
func (c *Config) IsRefreshLoggingEnabled() bool {
	if c.Logging.RefreshEnabled == nil {
		return true
	}
	return *c.Logging.RefreshEnabled
}

// GetSavedSearchPath returns the path of the saved search store.
func GetSavedSearchPath() string {
	return filepath.Join(GetDataDir(), "searches.json")
}

// GetAnalyticsDBPath returns the path of the usage analytics database.
func GetAnalyticsDBPath() string {
	return filepath.Join(GetDataDir(), "analytics.db")
}

// durationOr parses a duration string, falling back on empty or invalid input.
func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "staffdesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "staffdesk")
	}
	return filepath.Join(home, fallbackPath, "staffdesk")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the cache directory following XDG spec
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
