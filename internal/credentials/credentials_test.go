package credentials

import (
	"context"
	"strings"
	"testing"
)

// TestSetGetDelete verifies the keyring round trip
func TestSetGetDelete(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	ctx := context.Background()

	if err := m.Set(ctx, "hr-admin", "s3cret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := m.Get(ctx, "hr-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Found || info.Secret != "s3cret" {
		t.Errorf("expected stored secret, got %+v", info)
	}
	if info.Source != SourceKeyring {
		t.Errorf("expected keyring source, got %s", info.Source)
	}

	if err := m.Delete(ctx, "hr-admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, _ = m.Get(ctx, "hr-admin")
	if info.Found {
		t.Error("expected credentials gone after delete")
	}

	// Deleting again is idempotent.
	if err := m.Delete(ctx, "hr-admin"); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

// TestEnvironmentFallback verifies keyring miss falls back to env vars
func TestEnvironmentFallback(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	ctx := context.Background()

	t.Setenv("STAFFDESK_PASSWORD", "env-pass")

	info, err := m.Get(ctx, "hr-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Found || info.Secret != "env-pass" {
		t.Errorf("expected env password, got %+v", info)
	}
	if info.Source != SourceEnvironment {
		t.Errorf("expected environment source, got %s", info.Source)
	}

	// Token takes priority over password.
	t.Setenv("STAFFDESK_TOKEN", "env-token")
	info, _ = m.Get(ctx, "hr-admin")
	if info.Secret != "env-token" {
		t.Errorf("expected token priority, got %s", info.Secret)
	}
}

// TestEnvironmentUsernameMismatch verifies a mismatched env username
// suppresses the env password.
func TestEnvironmentUsernameMismatch(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	ctx := context.Background()

	t.Setenv("STAFFDESK_PASSWORD", "env-pass")
	t.Setenv("STAFFDESK_USERNAME", "someone-else")

	info, _ := m.Get(ctx, "hr-admin")
	if info.Found {
		t.Errorf("expected no credentials for mismatched username, got %+v", info)
	}
	if info.Source != SourceNone {
		t.Errorf("expected none source, got %s", info.Source)
	}
}

// TestKeyringBeatsEnvironment verifies source priority
func TestKeyringBeatsEnvironment(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	ctx := context.Background()

	t.Setenv("STAFFDESK_PASSWORD", "env-pass")
	if err := m.Set(ctx, "hr-admin", "ring-pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, _ := m.Get(ctx, "hr-admin")
	if info.Secret != "ring-pass" || info.Source != SourceKeyring {
		t.Errorf("expected keyring priority, got %+v", info)
	}
}

// TestMustGet verifies the typed not-found error
func TestMustGet(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	ctx := context.Background()

	_, err := m.MustGet(ctx, "nobody")
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "nobody") {
		t.Errorf("expected username in error, got: %v", err)
	}
}

// TestJSONExcludesSecret verifies the secret never serializes
func TestJSONExcludesSecret(t *testing.T) {
	info := &CredentialInfo{
		Source:   SourceKeyring,
		Username: "hr-admin",
		Secret:   "s3cret",
		Found:    true,
	}
	data, err := info.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Errorf("secret leaked into JSON: %s", string(data))
	}
	if !strings.Contains(string(data), "hr-admin") {
		t.Errorf("expected username in JSON, got: %s", string(data))
	}
}
