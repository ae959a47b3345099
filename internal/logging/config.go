package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sensacare/vitals/internal/config"
)

// NewFromConfig builds a logger from the logging config section.
// Unknown levels fall back to info.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	switch cfg.OutputPath {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		dir := filepath.Dir(cfg.OutputPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.OutputPath, err)
		}
		out = f
	}

	if cfg.Format == "console" || cfg.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeLayout(cfg.TimeFormat)}
	}
	return NewWithWriter(out, level), nil
}

func timeLayout(name string) string {
	switch name {
	case "Unix":
		return time.UnixDate
	case "Kitchen":
		return time.Kitchen
	case "RFC3339Nano":
		return time.RFC3339Nano
	default:
		return time.RFC3339
	}
}
