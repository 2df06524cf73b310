// Package logger builds the slog loggers used across the store and the CLI.
//
// Output is discarded unless enabled. When enabled, records go either to a
// caller-supplied writer or to a dated file in LogDir
// (xmlstore-YYYY-MM-DD.log); files older than 30 days are removed on Init.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the process-wide logger. It discards all output until Init enables it.
var L = Discard()

const (
	logPrefix     = "xmlstore-"
	logSuffix     = ".log"
	dateLayout    = "2006-01-02"
	retentionDays = 30
)

// Options configures a logger.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for log files. Default: ~/.xmlstore/logs
	Level   slog.Level // Minimum level. The zero value is LevelInfo
	JSON    bool       // JSON records instead of key=value text (files are always JSON)
	Writer  io.Writer  // If set, log here instead of to a file
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// New builds a logger from opts. The returned close function releases the
// log file, if one was opened, and is never nil.
func New(opts Options) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if !opts.Enabled {
		return Discard(), noop, nil
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	if opts.Writer != nil {
		if opts.JSON {
			return slog.New(slog.NewJSONHandler(opts.Writer, hopts)), noop, nil
		}
		return slog.New(slog.NewTextHandler(opts.Writer, hopts)), noop, nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, noop, err
		}
		logDir = filepath.Join(home, ".xmlstore", "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, noop, err
	}

	// Best-effort; a stale file is not worth failing startup over.
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format(dateLayout)+logSuffix)
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, noop, err
	}
	return slog.New(slog.NewJSONHandler(f, hopts)), f.Close, nil
}

// Init replaces L. Call from main() before any log calls.
func Init(opts Options) (func() error, error) {
	l, closeFn, err := New(opts)
	if err != nil {
		return closeFn, err
	}
	L = l
	return closeFn, nil
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Anything else is LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// xmlstore-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}
