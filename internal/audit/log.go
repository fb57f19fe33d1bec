package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("audit: log closed")

// Option customizes a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger routes replay diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Log is the append-only enforcement history backed by a newline-delimited
// JSON file. Its in-memory view is the replayed file followed by the records
// appended by this process.
type Log struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	file    *os.File
	records []Record
	session int
	skipped int
	last    time.Time
}

// Open replays the log at path and prepares it for appends. Unreadable lines
// are skipped and counted; only I/O failures are returned.
func Open(path string, opts ...Option) (*Log, error) {
	l := &Log{
		path:   path,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create log dir: %w", err)
	}
	if err := l.replay(); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	l.file = file
	l.session = len(l.records)
	return l, nil
}

func (l *Log) replay() error {
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", l.path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			l.replayLine(lineNo, line)
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("audit: read %s: %w", l.path, readErr)
		}
	}
}

func (l *Log) replayLine(lineNo int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		l.skipped++
		l.logger.Debug("skipping audit line", "line", lineNo, "error", err)
		return
	}
	if rec.Timestamp.After(l.last) {
		l.last = rec.Timestamp
	}
	l.records = append(l.records, rec)
}

// Path returns the file backing this log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append stamps rec, persists it as one line, and adds it to the session.
// Timestamps never run backwards relative to earlier records.
func (l *Log) Append(rec Record) (Record, error) {
	if l == nil {
		return Record{}, ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return Record{}, ErrClosed
	}
	if !rec.Status.Valid() {
		return Record{}, fmt.Errorf("audit: invalid status %q", rec.Status)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	rec.Timestamp = rec.Timestamp.UTC()
	if rec.Timestamp.Before(l.last) {
		rec.Timestamp = l.last
	}
	if rec.Details == nil {
		rec.Details = map[string]Detail{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("audit: encode record: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return Record{}, fmt.Errorf("audit: write %s: %w", l.path, err)
	}
	l.last = rec.Timestamp
	l.records = append(l.records, rec)
	return rec, nil
}

// Records returns a copy of the full history, oldest first.
func (l *Log) Records() []Record {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Session returns the records appended by this process.
func (l *Log) Session() []Record {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records[l.session:]...)
}

// Skipped returns how many lines replay could not use.
func (l *Log) Skipped() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.skipped
}

// Close releases the append handle. Reads keep working.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// WriteMarker appends a free-form initialization line that replay skips.
func WriteMarker(path string, event string, fields map[string]any, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("audit: create log dir: %w", err)
	}
	payload := map[string]any{}
	for k, v := range fields {
		payload[k] = v
	}
	payload["event"] = event
	payload["timestamp"] = now.UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit: encode marker: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: write marker: %w", err)
	}
	return nil
}
