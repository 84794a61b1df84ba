package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const DefaultLevel = "warn"

// New returns a logger writing to w at the given level ("debug", "info", "warn", "error").
// Unknown or empty levels fall back to DefaultLevel.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Prefix:          "threadshelf",
		ReportTimestamp: true,
	})
}

func ParseLevel(s string) log.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := log.ParseLevel(s)
	if err != nil || s == "" {
		lvl, _ = log.ParseLevel(DefaultLevel)
	}
	return lvl
}

// Discard returns a logger that drops everything. Used by tests and as a nil-safe default.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OpenFile returns a logger appending to path, for use while the TUI owns the terminal.
// The caller closes the returned file.
func OpenFile(path string, level string) (*log.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}
