package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log is the process-wide logger. It is nil until Init is called; the helpers
// below are no-ops in that case so packages can log unconditionally in tests.
var Log *slog.Logger

// Options controls where and how log records are written.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
	Sink   string // "stderr", "stdout" or "file:<path>"
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Init configures Log. Env vars THREADWEAVE_LOG_LEVEL and THREADWEAVE_LOG_SINK
// fill in fields left empty in opts.
func Init(opts Options) error {
	if opts.Level == "" {
		opts.Level = os.Getenv("THREADWEAVE_LOG_LEVEL")
	}
	if opts.Sink == "" {
		opts.Sink = os.Getenv("THREADWEAVE_LOG_SINK")
	}

	var w io.Writer = os.Stderr
	switch {
	case opts.Sink == "" || opts.Sink == "stderr":
	case opts.Sink == "stdout":
		w = os.Stdout
	case strings.HasPrefix(opts.Sink, "file:"):
		path := strings.TrimPrefix(opts.Sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", path, err)
		}
		w = f
	default:
		return fmt.Errorf("unknown log sink %q (want stderr, stdout or file:<path>)", opts.Sink)
	}

	Log = New(w, opts)
	return nil
}

// New builds a logger writing to w without touching the global.
func New(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
