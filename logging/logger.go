// Package logging provides the structured logger used across the server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dotside-studios/rfid-sfl/config"
)

// Levels outside slog's built-in set.
const (
	LevelTrace = slog.Level(-8)
	LevelOff   = slog.Level(1 << 10)
)

// Logger wraps slog.Logger with the server's default fields.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWriter(cfg, version, os.Stdout)
}

// NewWriter creates a Logger writing to w.
//
// It configures the output format (text or JSON), level filtering and the
// default service and version fields.
func NewWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: levelNames,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "rfid-sfl"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Open builds the logger described by cfg. When cfg.ToFile is set, output
// goes to both stdout and the log file; the returned closer releases the
// file and is never nil.
func Open(cfg config.LoggingConfig, version string) (*Logger, io.Closer, error) {
	if !cfg.ToFile {
		return New(cfg, version), nopCloser{}, nil
	}
	f, err := OpenFile(cfg.File, cfg.MaxSizeMB)
	if err != nil {
		return nil, nil, err
	}
	return NewWriter(cfg, version, io.MultiWriter(os.Stdout, f)), f, nil
}

// OpenFile opens path for appending. A file already larger than maxSizeMB
// megabytes is truncated first; zero disables the limit.
func OpenFile(path string, maxSizeMB int) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if maxSizeMB > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > int64(maxSizeMB)<<20 {
			flags |= os.O_TRUNC
		}
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLevel converts a configured level name to slog.Level.
//
// Supported levels: off, error, warn, info, debug, trace.
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "off":
		return LevelOff
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

func levelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	devLog := logger.With("component", "device")
//	devLog.Info("connected") // Includes component=device
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
	}, "dev")
}
