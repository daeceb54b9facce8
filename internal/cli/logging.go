package cli

import (
	"io"
	"log/slog"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// newLogger returns the process logger. Stdout carries protocol traffic, so
// w is always stderr outside tests.
func newLogger(cfg *types.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
