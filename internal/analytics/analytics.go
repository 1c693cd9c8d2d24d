// Package analytics provides local SQLite-based analytics for tracking
// remote operation usage, success rates and latency. Data never leaves
// the local database.
package analytics

import "os"

// Event represents a single analytics event
type Event struct {
	ID         int64
	Timestamp  int64
	Operation  string
	Entity     string
	Success    bool
	CacheHit   bool
	DurationMs int64
	ErrorKind  string
}

// IsEnabledFromEnv checks the STAFFDESK_ANALYTICS_ENABLED environment
// variable and returns the effective enabled state. Environment
// variable overrides the config value.
func IsEnabledFromEnv(configEnabled bool) bool {
	envVal := os.Getenv("STAFFDESK_ANALYTICS_ENABLED")
	if envVal == "" {
		return configEnabled
	}
	return envVal == "true" || envVal == "1"
}
