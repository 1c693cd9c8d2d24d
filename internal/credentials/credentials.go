// Package credentials provides secure credential storage and retrieval
// for the records server using the OS-native keyring with fallback to
// environment variables.
package credentials

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"staffdesk/internal/utils"
)

// service is the keyring service name under which credentials are stored.
const service = "staffdesk"

// Source indicates where credentials were retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// CredentialInfo contains credential information returned by Get()
type CredentialInfo struct {
	Source   Source // Where credentials came from
	Username string // Username/account identifier
	Secret   string // Password or API token (masked in display)
	Found    bool   // Whether credentials were found
}

// JSON serializes the credential info to JSON (secret excluded for security)
func (c *CredentialInfo) JSON() ([]byte, error) {
	output := struct {
		Username string `json:"username"`
		Source   string `json:"source"`
		Found    bool   `json:"found"`
	}{
		Username: c.Username,
		Source:   string(c.Source),
		Found:    c.Found,
	}
	return json.Marshal(output)
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring Keyring
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// NewManager creates a new credential manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores the secret for a username in the keyring
func (m *Manager) Set(ctx context.Context, username, secret string) error {
	return m.keyring.Set(service, username, secret)
}

// Get retrieves credentials from available sources (keyring first, then env vars)
func (m *Manager) Get(ctx context.Context, username string) (*CredentialInfo, error) {
	secret, err := m.keyring.Get(service, username)
	if err == nil && secret != "" {
		return &CredentialInfo{
			Source:   SourceKeyring,
			Username: username,
			Secret:   secret,
			Found:    true,
		}, nil
	}

	if envSecret := getEnvSecret(username); envSecret != "" {
		return &CredentialInfo{
			Source:   SourceEnvironment,
			Username: username,
			Secret:   envSecret,
			Found:    true,
		}, nil
	}

	return &CredentialInfo{
		Source:   SourceNone,
		Username: username,
		Found:    false,
	}, nil
}

// MustGet is Get with a typed not-found error for callers that require
// credentials to proceed.
func (m *Manager) MustGet(ctx context.Context, username string) (*CredentialInfo, error) {
	info, err := m.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if !info.Found {
		return nil, utils.ErrCredentialsNotFound(username)
	}
	return info, nil
}

// getEnvSecret gets the password or token from environment variables.
// STAFFDESK_TOKEN takes priority over STAFFDESK_PASSWORD; if
// STAFFDESK_USERNAME is set and does not match, the env secret is ignored.
func getEnvSecret(username string) string {
	if token := os.Getenv("STAFFDESK_TOKEN"); token != "" {
		return token
	}

	if envUsername := os.Getenv("STAFFDESK_USERNAME"); envUsername != "" && envUsername != username {
		return ""
	}
	return os.Getenv("STAFFDESK_PASSWORD")
}

// Delete removes credentials from the keyring. Idempotent: deleting
// absent credentials is not an error.
func (m *Manager) Delete(ctx context.Context, username string) error {
	err := m.keyring.Delete(service, username)
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}
