package utils

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorWithSuggestion verifies the wrapper formats and unwraps correctly
func TestErrorWithSuggestion(t *testing.T) {
	base := errors.New("something broke")
	err := WrapWithSuggestion(base, "try turning it off and on again")

	if !strings.Contains(err.Error(), "something broke") {
		t.Errorf("expected base message in output, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "Suggestion: try turning it off and on again") {
		t.Errorf("expected suggestion in output, got: %s", err.Error())
	}

	var ews *ErrorWithSuggestion
	if !errors.As(err, &ews) {
		t.Fatal("expected errors.As to find ErrorWithSuggestion")
	}
	if ews.GetSuggestion() != "try turning it off and on again" {
		t.Errorf("unexpected suggestion: %s", ews.GetSuggestion())
	}
	if !errors.Is(err, base) {
		t.Error("expected Unwrap to expose the base error")
	}
}

// TestErrRecordNotFound verifies the domain constructor mentions entity and id
func TestErrRecordNotFound(t *testing.T) {
	err := ErrRecordNotFound("people", "42")
	if !strings.Contains(err.Error(), "people record not found: 42") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "staffdesk people list") {
		t.Errorf("expected list suggestion, got: %s", err.Error())
	}
}

// TestErrServerOfflineSuggestions verifies context-aware suggestions
func TestErrServerOfflineSuggestions(t *testing.T) {
	tests := []struct {
		name     string
		reason   string
		expected string
	}{
		{"dns failure", "no such host", "DNS settings"},
		{"refused", "connection refused", "server is running"},
		{"timeout", "i/o timeout", "slow or unreachable"},
		{"generic", "socket hangup", "internet connection"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ErrServerOffline(tc.reason)
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("expected suggestion containing %q, got: %s", tc.expected, err.Error())
			}
		})
	}
}

// TestErrInvalidOperator verifies valid options are listed
func TestErrInvalidOperator(t *testing.T) {
	err := ErrInvalidOperator("approx", []string{"equals", "contains"})
	if !strings.Contains(err.Error(), "invalid operator: approx") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "equals, contains") {
		t.Errorf("expected valid options, got: %s", err.Error())
	}
}
