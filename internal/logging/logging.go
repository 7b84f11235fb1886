// Package logging builds the slog logger used across honeywatch.
//
// The dashboard owns the terminal, so it logs JSON to a file. Headless
// commands log text to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix shared with the config package.
const EnvPrefix = "HONEYWATCH"

// Options configure New.
type Options struct {
	// Level is a level name; empty falls back to HONEYWATCH_LOG_LEVEL, then info.
	Level string
	// File receives JSON logs when set. Parent directories are created.
	File string
	// Writer receives text logs when File is empty. Nil uses stderr.
	Writer io.Writer
}

// New returns a logger and the closer for its sink. The closer is a no-op
// when logging to Writer.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	levelName := opts.Level
	if strings.TrimSpace(levelName) == "" {
		levelName = LevelFromEnv()
	}
	level, ok := ParseLevel(levelName)

	var (
		handler slog.Handler
		closer  io.Closer = nopCloser{}
	)
	handlerOpts := &slog.HandlerOptions{Level: level}

	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handler = slog.NewJSONHandler(f, handlerOpts)
		closer = f
	} else {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	if !ok {
		logger.Warn("invalid log level, using info", "value", levelName)
	}
	return logger, closer, nil
}

// ParseLevel maps a level name to a slog.Level. Unknown names return info
// and false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LevelFromEnv reads HONEYWATCH_LOG_LEVEL.
func LevelFromEnv() string {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v.GetString("LOG_LEVEL")
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
