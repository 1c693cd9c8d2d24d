package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// defaultRefreshLoggingEnabled is the default value when no config is available.
// The runtime config option logging.refresh_enabled overrides this default.
const defaultRefreshLoggingEnabled = true

// Logger provides leveled logging with verbose mode support.
type Logger struct {
	verbose bool
	mu      sync.RWMutex
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{
			verbose: false,
		}
	})
	return loggerInstance
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	logger := GetLogger()
	logger.SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// formatMessage formats a message with optional printf-style arguments.
func formatMessage(msgOrFormat string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msgOrFormat, args...)
	}
	return msgOrFormat
}

// Debug logs a debug message (only shown when verbose=true).
// Can be used with a simple message or printf-style format string with args.
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	if !l.IsVerbose() {
		return
	}
	fmt.Fprintf(os.Stderr, "%s [DEBUG] %s\n", time.Now().Format("15:04:05"), formatMessage(msgOrFormat, args...))
}

// Info logs an info message (always shown).
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[INFO] %s\n", formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message (always shown).
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s\n", formatMessage(msgOrFormat, args...))
}

// Error logs an error message (always shown).
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s\n", formatMessage(msgOrFormat, args...))
}

// Debugf is a convenience function that logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function that logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function that logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function that logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// RefreshLogger provides logging for the background refresh loop to a
// PID-specific file, keeping timer chatter out of the interactive UI.
type RefreshLogger struct {
	logger   *log.Logger
	logFile  *os.File
	enabled  bool
	filePath string
}

// NewRefreshLogger creates a new refresh logger with a PID-specific log file.
// Uses the default enabled value. For runtime config control, use NewRefreshLoggerWithEnabled.
func NewRefreshLogger() (*RefreshLogger, error) {
	return NewRefreshLoggerWithEnabled(defaultRefreshLoggingEnabled)
}

// NewRefreshLoggerWithEnabled creates a refresh logger with explicit enabled control.
// Pass config.IsRefreshLoggingEnabled() to honor the logging.refresh_enabled config.
func NewRefreshLoggerWithEnabled(enabled bool) (*RefreshLogger, error) {
	if !enabled {
		return &RefreshLogger{
			logger:  log.New(io.Discard, "", log.LstdFlags),
			enabled: false,
		}, nil
	}

	pid := os.Getpid()
	logPath := fmt.Sprintf("%s/staffdesk-%d.log", os.TempDir(), pid)
	return NewRefreshLoggerWithPath(logPath)
}

// NewRefreshLoggerWithPath creates a refresh logger with a custom path.
func NewRefreshLoggerWithPath(path string) (*RefreshLogger, error) {
	rl := &RefreshLogger{
		filePath: path,
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Gracefully degrade to io.Discard
		rl.logger = log.New(io.Discard, "", log.LstdFlags)
		rl.enabled = false
		return rl, err
	}

	rl.logFile = file
	rl.logger = log.New(file, "", log.LstdFlags)
	rl.enabled = true
	return rl, nil
}

// Printf logs a formatted message.
func (rl *RefreshLogger) Printf(format string, args ...interface{}) {
	if rl.logger != nil {
		rl.logger.Printf(format, args...)
	}
}

// Println logs a message with a newline.
func (rl *RefreshLogger) Println(args ...interface{}) {
	if rl.logger != nil {
		rl.logger.Println(args...)
	}
}

// Close closes the log file.
func (rl *RefreshLogger) Close() {
	if rl.logFile != nil {
		_ = rl.logFile.Close()
		rl.logFile = nil
	}
	// After close, switch to io.Discard for graceful degradation
	rl.logger = log.New(io.Discard, "", log.LstdFlags)
	rl.enabled = false
}

// GetLogPath returns the log file path.
func (rl *RefreshLogger) GetLogPath() string {
	return rl.filePath
}

// IsEnabled returns whether refresh logging is enabled.
func (rl *RefreshLogger) IsEnabled() bool {
	return rl.enabled
}
