// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// Options configure the logger.
type Options struct {
	// Terminal receives human readable text records (stderr by default)
	Terminal io.Writer
	// File, when set, also receives JSON records
	File    string
	Verbose bool
}

// Logger is a configured logger plus the resources it holds open.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *os.File
}

// New creates a logger that fans records out to the terminal and, when
// configured, to a JSON log file.
func New(opts Options) (*Logger, error) {
	if opts.Terminal == nil {
		opts.Terminal = os.Stderr
	}

	level := new(slog.LevelVar)
	if opts.Verbose {
		level.Set(slog.LevelDebug)
	}

	// Using TextHandler for CLI friendliness
	handlers := []slog.Handler{
		slog.NewTextHandler(opts.Terminal, &slog.HandlerOptions{Level: level}),
	}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		//nolint:gosec // G304: log path comes from operator configuration
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		level:  level,
		file:   file,
	}, nil
}

// SetLevel changes the minimum level of every sink.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
