package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoggerSingleton verifies GetLogger returns the same instance
func TestLoggerSingleton(t *testing.T) {
	l1 := GetLogger()
	l2 := GetLogger()
	if l1 != l2 {
		t.Error("expected GetLogger to return the same instance")
	}
}

// TestLoggerVerboseToggle verifies verbose mode gating
func TestLoggerVerboseToggle(t *testing.T) {
	l := GetLogger()
	defer l.SetVerbose(false)

	l.SetVerbose(true)
	if !l.IsVerbose() {
		t.Error("expected verbose to be enabled")
	}
	l.SetVerbose(false)
	if l.IsVerbose() {
		t.Error("expected verbose to be disabled")
	}
}

// TestRefreshLoggerDisabled verifies the disabled logger discards output
func TestRefreshLoggerDisabled(t *testing.T) {
	rl, err := NewRefreshLoggerWithEnabled(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.IsEnabled() {
		t.Error("expected disabled refresh logger")
	}
	// Must not panic when writing to a disabled logger.
	rl.Printf("refresh tick %d", 1)
	rl.Println("refresh tick")
	rl.Close()
}

// TestRefreshLoggerWritesToFile verifies log lines reach the file
func TestRefreshLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh.log")

	rl, err := NewRefreshLoggerWithPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rl.IsEnabled() {
		t.Fatal("expected enabled refresh logger")
	}
	if rl.GetLogPath() != path {
		t.Errorf("expected path %s, got %s", path, rl.GetLogPath())
	}

	rl.Printf("refreshed %d stale keys", 3)
	rl.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "refreshed 3 stale keys") {
		t.Errorf("expected log line in file, got: %s", string(data))
	}

	// Writes after Close must be discarded without panicking.
	rl.Printf("late line")
}

// TestRefreshLoggerBadPath verifies graceful degradation on open failure
func TestRefreshLoggerBadPath(t *testing.T) {
	rl, err := NewRefreshLoggerWithPath("/nonexistent-dir/refresh.log")
	if err == nil {
		t.Error("expected error for unwritable path")
	}
	if rl == nil {
		t.Fatal("expected a usable logger despite the error")
	}
	if rl.IsEnabled() {
		t.Error("expected degraded logger to be disabled")
	}
	rl.Printf("discarded")
}
