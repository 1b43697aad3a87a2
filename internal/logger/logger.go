// Package logger builds the charmbracelet loggers shared by the piecewise
// packages and commands.
package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var formatter atomic.Int32

// New creates a logger writing to stderr that follows the global level and
// format.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.Formatter(formatter.Load()),
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a logger with custom settings.
func NewWithConfig(w io.Writer, prefix string, level log.Level,
	showTimestamp bool, formatter log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: showTimestamp,
		Formatter:       formatter,
	})
}

// ParseFormatter maps "text", "json" and "logfmt" to a formatter. Anything
// else is text.
func ParseFormatter(name string) log.Formatter {
	switch strings.ToLower(name) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// SetLevel parses level and applies it to the default logger.
func SetLevel(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}

// SetFormat applies the named formatter to the default logger and to loggers
// created by New from now on.
func SetFormat(name string) {
	parsed := ParseFormatter(name)
	formatter.Store(int32(parsed))
	log.SetFormatter(parsed)
}
