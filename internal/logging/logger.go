// Package logging provides the structured JSON logger used by both programs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by New and NewFile.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFile is the file name NewFile creates under its directory.
const LogFile = "tutor.log"

// Logger wraps a JSON slog.Logger. Child loggers share the underlying file.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	out    *output
}

// output is shared by a Logger and all of its children.
type output struct {
	mu   sync.Mutex
	file *os.File
}

// New returns a Logger writing JSON lines to w at the given level.
// Unknown levels fall back to INFO.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{logger: slog.New(h), out: &output{}}
}

// NewFile returns a Logger appending to {dir}/tutor.log. An empty dir logs to stderr.
func NewFile(dir, level string) (*Logger, error) {
	if dir == "" {
		return New(os.Stderr, level), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := New(f, level)
	l.out.file = f
	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler), out: &output{}}
}

// ParseLevel converts a level name to slog.Level, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger with the given key-value pairs attached.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...), out: l.out}
}

// WithAgent tags entries with the agent id.
func (l *Logger) WithAgent(agentID string) *Logger {
	return l.With("agent_id", agentID)
}

// WithRequest tags entries with an HTTP request or run id.
func (l *Logger) WithRequest(requestID string) *Logger {
	return l.With("request_id", requestID)
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog exposes the underlying logger for packages that take *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// Close closes the log file, if any. The file is shared, so closing a parent
// or any child closes it once for all of them.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file == nil {
		return nil
	}
	err := l.out.file.Close()
	l.out.file = nil
	return err
}
