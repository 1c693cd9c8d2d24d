package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadCreatesDefaultConfig verifies a missing file is created from the sample
func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config")
	}
	if !cfg.IsAnalyticsEnabled() {
		t.Error("expected analytics enabled by default")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file created: %v", err)
	}
	if string(data) != GetSampleConfig() {
		t.Error("expected created file to match the embedded sample")
	}

	// The written sample must itself load cleanly.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to reload created config: %v", err)
	}
	if err := reloaded.Validate(); err != nil {
		t.Errorf("created config does not validate: %v", err)
	}
}

// TestLoadParsesSettings verifies YAML fields map to getters
func TestLoadParsesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  url: "https://records.example.com"
  username: "hr-admin"
  timeout: "10s"
cache:
  list_ttl: "2m"
  stats_ttl: "30s"
refresh:
  enabled: false
  interval: "45s"
ui:
  page_size: 50
export:
  dir: "~/exports"
analytics:
  enabled: true
  retention_days: 90
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.URL != "https://records.example.com" {
		t.Errorf("unexpected server url: %s", cfg.Server.URL)
	}
	if cfg.GetServerTimeout() != 10*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.GetServerTimeout())
	}
	if cfg.GetListTTL() != 2*time.Minute {
		t.Errorf("unexpected list ttl: %v", cfg.GetListTTL())
	}
	if cfg.GetRecordTTL() != 5*time.Minute {
		t.Errorf("expected record ttl default, got %v", cfg.GetRecordTTL())
	}
	if cfg.GetStatsTTL() != 30*time.Second {
		t.Errorf("unexpected stats ttl: %v", cfg.GetStatsTTL())
	}
	if cfg.IsRefreshEnabled() {
		t.Error("expected refresh disabled")
	}
	if cfg.GetRefreshInterval() != 45*time.Second {
		t.Errorf("unexpected refresh interval: %v", cfg.GetRefreshInterval())
	}
	if cfg.GetPageSize() != 50 {
		t.Errorf("unexpected page size: %d", cfg.GetPageSize())
	}
	if cfg.GetAnalyticsRetentionDays() != 90 {
		t.Errorf("unexpected retention: %d", cfg.GetAnalyticsRetentionDays())
	}
	if cfg.Export.Dir == "~/exports" {
		t.Error("expected export dir tilde expansion")
	}
}

// TestDefaults verifies getter fallbacks on an empty config
func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if cfg.GetServerTimeout() != 30*time.Second {
		t.Errorf("unexpected timeout default: %v", cfg.GetServerTimeout())
	}
	if cfg.GetListTTL() != 5*time.Minute {
		t.Errorf("unexpected list ttl default: %v", cfg.GetListTTL())
	}
	if cfg.GetStatsTTL() != time.Minute {
		t.Errorf("unexpected stats ttl default: %v", cfg.GetStatsTTL())
	}
	if !cfg.IsRefreshEnabled() {
		t.Error("expected refresh enabled by default")
	}
	if cfg.GetRefreshInterval() != 30*time.Second {
		t.Errorf("unexpected refresh interval default: %v", cfg.GetRefreshInterval())
	}
	if cfg.GetProbeInterval() != 15*time.Second {
		t.Errorf("unexpected probe interval default: %v", cfg.GetProbeInterval())
	}
	if cfg.GetPageSize() != 20 {
		t.Errorf("unexpected page size default: %d", cfg.GetPageSize())
	}
	if cfg.GetAnalyticsRetentionDays() != 365 {
		t.Errorf("unexpected retention default: %d", cfg.GetAnalyticsRetentionDays())
	}
	if !cfg.IsRefreshLoggingEnabled() {
		t.Error("expected refresh logging enabled by default")
	}
}

// TestValidate verifies rejection of malformed settings
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"empty config", func(c *Config) {}, false},
		{"valid url", func(c *Config) { c.Server.URL = "https://x.test" }, false},
		{"bad url scheme", func(c *Config) { c.Server.URL = "ftp://x.test" }, true},
		{"bad timeout", func(c *Config) { c.Server.Timeout = "soon" }, true},
		{"bad list ttl", func(c *Config) { c.Cache.ListTTL = "5 minutes" }, true},
		{"valid durations", func(c *Config) {
			c.Server.Timeout = "10s"
			c.Cache.ListTTL = "2m"
			c.Refresh.Interval = "30s"
		}, false},
		{"refresh interval too small", func(c *Config) { c.Refresh.Interval = "1s" }, true},
		{"negative page size", func(c *Config) { c.UI.PageSize = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestLoadInvalidYAML verifies parse errors surface
func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

// TestApplyFlags verifies CLI overrides
func TestApplyFlags(t *testing.T) {
	cfg := &Config{}
	cfg.Server.URL = "https://configured.test"

	cfg.ApplyFlags("", false)
	if cfg.Server.URL != "https://configured.test" || cfg.NoPrompt {
		t.Error("expected no-op for empty flags")
	}

	cfg.ApplyFlags("https://flag.test", true)
	if cfg.Server.URL != "https://flag.test" {
		t.Errorf("expected flag override, got %s", cfg.Server.URL)
	}
	if !cfg.NoPrompt {
		t.Error("expected no_prompt override")
	}
}

// TestXDGDirs verifies environment-variable override
func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	if got := GetConfigDir(); got != filepath.Join("/tmp/xdg-config", "staffdesk") {
		t.Errorf("unexpected config dir: %s", got)
	}
	if got := GetDataDir(); got != filepath.Join("/tmp/xdg-data", "staffdesk") {
		t.Errorf("unexpected data dir: %s", got)
	}
	if got := GetSavedSearchPath(); got != filepath.Join("/tmp/xdg-data", "staffdesk", "searches.json") {
		t.Errorf("unexpected saved search path: %s", got)
	}
}
