package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrRecordNotFound returns an error for when a record is not found.
func ErrRecordNotFound(entity, id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%s record not found: %s", entity, id),
		Suggestion: fmt.Sprintf("Check the id or use 'staffdesk list %s' to see all records", entity),
	}
}

// ErrUnknownEntity returns an error for an unrecognized entity name.
func ErrUnknownEntity(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown entity: %s", name),
		Suggestion: "Valid entities: people, departments, positions, employments",
	}
}

// ErrServerNotConfigured returns an error when no server URL is set.
func ErrServerNotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("server is not configured"),
		Suggestion: "Set server.url in your config file or pass --server",
	}
}

// ErrServerOffline returns an error when the server is unreachable with smart suggestions.
func ErrServerOffline(reason string) error {
	suggestion := getSmartSuggestion(reason)
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("server is offline: %s", reason),
		Suggestion: suggestion,
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	return "Check your internet connection and try again"
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date: %s", dateStr),
		Suggestion: "Use date format YYYY-MM-DD (e.g., 2026-01-15)",
	}
}

// ErrInvalidOperator returns an error for an invalid filter operator with valid options.
func ErrInvalidOperator(operator string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid operator: %s", operator),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrSavedSearchNotFound returns an error when a saved search is missing.
func ErrSavedSearchNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("saved search not found: %s", name),
		Suggestion: "Use 'staffdesk search list' to see saved searches",
	}
}

// ErrCredentialsNotFound returns an error when credentials are missing.
func ErrCredentialsNotFound(user string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("credentials not found for user %s", user),
		Suggestion: "Run 'staffdesk login' to store credentials",
	}
}

// ErrAuthenticationFailed returns an error when authentication fails.
func ErrAuthenticationFailed() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("authentication failed"),
		Suggestion: "Verify your credentials are correct and have not expired, then reconnect",
	}
}
