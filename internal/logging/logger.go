package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Options selects where and how diagnostics are written.
type Options struct {
	// Path is the log file; empty discards output.
	Path   string
	Level  string
	Format string
}

// Logger appends structured lines to .ai/logs/warden.log so users can see
// why a hook blocked or flagged a command after the fact. Every line carries
// the run id of the process that wrote it.
type Logger struct {
	*slog.Logger
	file  *os.File
	runID string
}

// New opens (or creates) the log file and builds the slog handler.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	var (
		out  io.Writer = io.Discard
		file *os.File
	)
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		file, err = os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		out = file
	}
	runID := uuid.NewString()
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{
		Logger: slog.New(handler).With("run", runID),
		file:   file,
		runID:  runID,
	}, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l, _ := New(Options{})
	return l
}

// ParseLevel maps a level name onto slog; empty means info.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", value)
}

// RunID identifies this process in the log.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// ForComponent returns a child logger tagged with component.
func (l *Logger) ForComponent(component string) *slog.Logger {
	return l.Logger.With("component", component)
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
