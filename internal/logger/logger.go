// Package logger provides the structured logger shared by every component.
package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger defines the interface for structured logging. The variadic
// arguments are key-value pairs:
//
//	log.Info("user promoted", "user_id", id, "role", role)
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

// Config controls output format and verbosity.
type Config struct {
	Level  string
	JSON   bool
	Output io.Writer
	// Timestamps can be disabled for deterministic output in tests.
	NoTimestamp bool
}

type charmLogger struct {
	l *charmlog.Logger
}

// New builds a Logger backed by charmbracelet/log.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	level, err := charmlog.ParseLevel(cfg.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: !cfg.NoTimestamp,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           level,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return &charmLogger{l: l}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return New(Config{Output: io.Discard, Level: "error", NoTimestamp: true})
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}
