// Package logging defines the structured-logging contract shared by every
// component, plus the concrete charmbracelet/log-backed implementation used
// by the daemon binary.
package logging

import (
	"os"

	charm "github.com/charmbracelet/log"
)

// Logger is implemented by every logging backend in this repo.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards everything; the default for tests and for components
// constructed without an explicit logger.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// charmLogger adapts charmbracelet/log's *Logger to the Logger interface.
type charmLogger struct {
	l *charm.Logger
}

// New builds the process-wide logger. level is one of "debug", "info",
// "warn", "error"; unrecognised values fall back to info.
func New(level string) Logger {
	l := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "pushtotalkd",
	})
	l.SetLevel(parseLevel(level))
	return &charmLogger{l: l}
}

func parseLevel(level string) charm.Level {
	switch level {
	case "debug":
		return charm.DebugLevel
	case "warn":
		return charm.WarnLevel
	case "error":
		return charm.ErrorLevel
	default:
		return charm.InfoLevel
	}
}

func (c *charmLogger) Debug(msg string, args ...any) { c.l.Debug(msg, args...) }
func (c *charmLogger) Info(msg string, args ...any)  { c.l.Info(msg, args...) }
func (c *charmLogger) Warn(msg string, args ...any)  { c.l.Warn(msg, args...) }
func (c *charmLogger) Error(msg string, args ...any) { c.l.Error(msg, args...) }
