// Package logging provides structured, colorful logging utilities for coalesce
// components, keeping log formatting consistent between the batching library,
// the reference batch server and the CLI tools.
//
// LOGGING FEATURES:
//   - Color-coded levels: DEBUG (purple), INFO (blue), WARN (yellow), ERROR (red), SUCCESS (green)
//   - Unix conventions: INFO/SUCCESS go to stdout, WARN/ERROR/DEBUG go to stderr
//   - Flexible output: configurable levels, single log file mode and output suppression
//   - Library integration: io.Writer adapters for gin and a resty.Logger implementation
//
// All functions take printf-style arguments; callers never build log lines
// themselves.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	stdlog "log"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	// mu guards logger replacement; the loggers themselves are goroutine safe.
	mu sync.RWMutex

	// INFO/SUCCESS messages (stdout by default)
	stdoutLogger = newLogger(os.Stdout)

	// WARN/ERROR/DEBUG messages (stderr by default)
	stderrLogger = newLogger(os.Stderr)

	// Track if logging has been explicitly configured by CLI tools
	cliConfigured = false

	// Output used by Success; follows the log file when one is set
	stdoutOutput io.Writer = os.Stdout
)

// newLogger builds a charmbracelet logger with the shared timestamp format and
// color scheme.
func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	l.SetStyles(setupCustomStyles())
	return l
}

// setupCustomStyles creates custom color styling for log levels. Colors are
// chosen to stay readable on both light and dark terminals.
func setupCustomStyles() *log.Styles {
	styles := log.DefaultStyles()

	// DEBUG: light purple
	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(lipgloss.Color("#7F6DFF"))

	// INFO: light blue
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(lipgloss.Color("#42E7FF"))

	// WARN: light yellow
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#FFE763"))

	// ERROR: light red/pink
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(lipgloss.Color("#FF4473"))

	return styles
}

func stdout() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return stdoutLogger
}

func stderr() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return stderrLogger
}

// Info logs informational messages to stdout (or the log file when set).
func Info(format string, v ...any) {
	stdout().Info(fmt.Sprintf(format, v...))
}

// Warn logs warning messages for non-critical issues to stderr.
func Warn(format string, v ...any) {
	stderr().Warn(fmt.Sprintf(format, v...))
}

// Error logs error messages to stderr.
func Error(format string, v ...any) {
	stderr().Error(fmt.Sprintf(format, v...))
}

// Debug logs detailed debugging information to stderr.
func Debug(format string, v ...any) {
	stderr().Debug(fmt.Sprintf(format, v...))
}

// Success logs successful operations in green using INFO level with custom
// styling. Respects INFO level filtering.
func Success(format string, v ...any) {
	base := stdout()
	if base.GetLevel() > log.InfoLevel {
		return
	}

	mu.RLock()
	out := stdoutOutput
	mu.RUnlock()

	styles := setupCustomStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("SUCCESS").
		Foreground(lipgloss.Color("#60F281"))

	tempLogger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	tempLogger.SetStyles(styles)
	tempLogger.Info(fmt.Sprintf(format, v...))
}

// ParseLevel converts a level string (DEBUG, INFO, WARN, ERROR) to a log
// level. Unknown values map to INFO.
func ParseLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel configures the minimum logging level for both loggers.
// Unknown levels fall back to INFO with a warning.
func SetLevel(level string) {
	logLevel := ParseLevel(level)
	stdout().SetLevel(logLevel)
	stderr().SetLevel(logLevel)

	if !IsValidLogLevel(level) {
		stderr().Warn(fmt.Sprintf("Unknown log level %q, using INFO", level))
	}
}

// SetOutput configures the log destination. When a writer is given all levels
// go to it, overriding the stdout/stderr split. When nil, all output is
// suppressed.
func SetOutput(w io.Writer) {
	if w == nil {
		stdout().SetLevel(log.FatalLevel + 1)
		stderr().SetLevel(log.FatalLevel + 1)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	stdoutLogger = newLogger(w)
	stderrLogger = newLogger(w)
	stdoutOutput = w
}

// SuppressOutput disables INFO/WARN/DEBUG logs while keeping ERROR logs
// visible. Used by the CLI to keep its output clean.
func SuppressOutput() {
	stdout().SetLevel(log.ErrorLevel)
	stderr().SetLevel(log.ErrorLevel)

	mu.Lock()
	cliConfigured = true
	mu.Unlock()
}

// RestoreOutput restores stdout/stderr logging at INFO level.
func RestoreOutput() {
	mu.Lock()
	defer mu.Unlock()

	stdoutLogger = newLogger(os.Stdout)
	stderrLogger = newLogger(os.Stderr)
	stdoutLogger.SetLevel(log.InfoLevel)
	stderrLogger.SetLevel(log.InfoLevel)
	stdoutOutput = os.Stdout
	cliConfigured = true
}

// IsConfiguredByCLI returns true if logging has been explicitly configured by
// CLI tools.
func IsConfiguredByCLI() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cliConfigured
}

// ============================================================================
// LIBRARY INTEGRATION - writers and loggers for third-party libraries
// ============================================================================

// LevelWriter forwards log lines to a specific log level with optional prefix.
// Used for gin's DefaultWriter/DefaultErrorWriter.
type LevelWriter struct {
	level  string
	prefix string
}

// NewLevelWriter creates a writer that logs each line at the specified level
// with prefix. Valid levels: DEBUG, INFO, WARN, ERROR
func NewLevelWriter(level, prefix string) io.Writer {
	return &LevelWriter{level: strings.ToUpper(level), prefix: prefix}
}

// Write splits input into lines and logs each at the configured level.
func (w *LevelWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		msg := line
		if w.prefix != "" {
			msg = w.prefix + ": " + line
		}
		switch w.level {
		case "DEBUG":
			Debug("%s", msg)
		case "WARN":
			Warn("%s", msg)
		case "ERROR":
			Error("%s", msg)
		default:
			Info("%s", msg)
		}
	}
	return len(p), nil
}

// RestyLogger implements resty.Logger and routes resty's internal logging
// through this package.
type RestyLogger struct{}

// Errorf routes error messages through structured logging.
func (RestyLogger) Errorf(format string, v ...any) {
	Error("(resty) "+format, v...)
}

// Warnf routes warning messages through structured logging.
func (RestyLogger) Warnf(format string, v ...any) {
	Warn("(resty) "+format, v...)
}

// Debugf routes debug messages through structured logging.
func (RestyLogger) Debugf(format string, v ...any) {
	Debug("(resty) "+format, v...)
}

// RedirectStandardLog redirects Go's standard library logger output to the
// provided writer. Passing nil discards standard log output.
func RedirectStandardLog(w io.Writer) {
	if w == nil {
		stdlog.SetOutput(io.Discard)
		return
	}
	stdlog.SetOutput(w)
}
