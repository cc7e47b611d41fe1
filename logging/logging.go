// Package logging builds the slog handler used by the gotmt binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options selects the handler.
type Options struct {
	Level  string // debug, info, warn or error
	Format string // "text" (tint console output) or "json"
	Color  bool   // Colored text output
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "", "text":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !opts.Color,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	return slog.New(handler), nil
}

// Err returns an error attribute that tint renders highlighted.
func Err(err error) slog.Attr {
	return tint.Err(err)
}
