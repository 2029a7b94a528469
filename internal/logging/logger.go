package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cargoport/internal/config"
)

// LogFileName is the daemon log written under paths.log_dir.
const LogFileName = "cargoport.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists sinks: "stdout", "stderr" or a file path. Empty means stdout.
	Outputs     []string
	Development bool
}

// Overrides adjusts the configured logging for one process.
type Overrides struct {
	// Level replaces logging.level when set.
	Level       string
	Development bool
	// Outputs replaces the default stdout plus log file sinks.
	Outputs []string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	out, err := openSinks(opts.Outputs)
	if err != nil {
		return nil, err
	}

	level := parseLevel(opts.Level)
	addSource := opts.Development || level <= slog.LevelDebug
	if format == "json" {
		return slog.New(newJSONHandler(out, level, addSource)), nil
	}
	return slog.New(newConsoleHandler(out, level, addSource)), nil
}

// NewFromConfig builds the process logger from the [logging] section. By
// default it writes to stdout and to LogFileName inside paths.log_dir.
func NewFromConfig(cfg *config.Config, ov Overrides) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "console", Development: ov.Development}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
	}
	if level := strings.TrimSpace(ov.Level); level != "" {
		opts.Level = level
	}

	switch {
	case len(ov.Outputs) > 0:
		opts.Outputs = ov.Outputs
	case cfg != nil && cfg.Paths.LogDir != "":
		opts.Outputs = []string{"stdout", LogPath(cfg)}
	default:
		opts.Outputs = []string{"stdout"}
	}
	return New(opts)
}

// LogPath returns the daemon log file for cfg.
func LogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, LogFileName)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openSinks resolves output names to one writer. Duplicate names are opened once.
func openSinks(outputs []string) (io.Writer, error) {
	seen := make(map[string]bool, len(outputs))
	writers := make([]io.Writer, 0, len(outputs))
	for _, name := range outputs {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
			file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", name, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
