package authclient

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel accepts debug, info, warn and error.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// NewLogger returns a JSON slog logger writing to w. Unknown levels fall back
// to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl, _ := ParseLogLevel(level)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
