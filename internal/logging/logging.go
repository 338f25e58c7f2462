// Package logging provides the file-backed debug logger used by the
// router and the task store. A zero-value logger is a no-op, so
// components can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger writes timestamped debug lines to a file, safely from
// multiple goroutines. The zero value discards everything.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a logger writing to the given path, creating parent
// directories as needed. An empty path yields a no-op logger.
func New(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== Debug log started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// Log writes a timestamped message to the log file. No-op when the
// logger has no file.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.file, "[%s] %s\n", ts, fmt.Sprintf(format, args...))
}

// Close closes the underlying file, if any.
func (l *DebugLogger) Close() error {
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
