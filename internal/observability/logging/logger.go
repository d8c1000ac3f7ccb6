// Package logging builds the process-wide structured logger. Log records
// are JSON with the message under "event", since handlers and use cases
// log snake_case event names rather than prose.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns the logger both binaries install at startup,
// tagged with the service name so api and worker records interleave
// cleanly in one stream.
func NewJSONLogger(service, level string) *slog.Logger {
	return NewLogger(os.Stdout, service, level)
}

// NewLogger is NewJSONLogger with an explicit sink.
func NewLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: renameMessageKey,
	})
	return slog.New(handler).With(slog.String("service", service))
}

func renameMessageKey(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.MessageKey {
		a.Key = "event"
	}
	return a
}

// ParseLevel maps a configured level string onto slog's levels. slog's
// own names and offsets ("debug", "WARN+2") are accepted, plus "warning"
// as an alias. An unrecognized value falls back to info so a bad env var
// cannot silence the process.
func ParseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
