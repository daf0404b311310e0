// Package logger builds the *slog.Logger instances used across duet: a
// colorized charmbracelet/log handler for terminals, slog's JSON handler for
// log files, and a plain text handler otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	writers []io.Writer
	source  bool
}

// New creates a *slog.Logger from the given options. With no options it
// writes info-level text records to stderr.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var w io.Writer
	switch len(cfg.writers) {
	case 0:
		w = os.Stderr
	case 1:
		w = cfg.writers[0]
	default:
		w = io.MultiWriter(cfg.writers...)
	}

	switch {
	case cfg.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		}))
	case cfg.pretty:
		return slog.New(newPrettyHandler(w, cfg))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		}))
	}
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newPrettyHandler(w io.Writer, cfg *config) *charmlog.Logger {
	level := charmlog.InfoLevel
	if cfg.level <= slog.LevelDebug {
		level = charmlog.DebugLevel
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		ReportCaller:    cfg.source,
	})
}
