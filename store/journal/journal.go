// Package journal is the append-only durability log behind the page store.
//
// Every transaction that reaches commit is written as a contiguous run of
// PUT/DELETE records followed by COMMIT and synced before any page is
// touched. After the pages are updated a CHECKPOINT record marks every
// earlier commit as applied. On open, Replay returns the committed batches
// that follow the last checkpoint so they can be applied again.
//
// Records are framed with a length and a CRC-32C. A short or mismatched
// final record is a torn write from a crash and ends replay quietly.
package journal

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// SyncMode controls how Sync makes appended records durable.
type SyncMode int

const (
	// SyncAuto flushes buffered records and calls fdatasync (fsync on
	// macOS, FlushFileBuffers on Windows).
	SyncAuto SyncMode = iota

	// SyncNone only flushes buffered records to the OS. Records survive a
	// process crash but not a power loss.
	SyncNone

	// SyncFull is SyncAuto plus F_FULLFSYNC on macOS, which also drains the
	// drive's write cache.
	SyncFull
)

// String returns the mode name used in configuration files.
func (m SyncMode) String() string {
	switch m {
	case SyncAuto:
		return "auto"
	case SyncNone:
		return "none"
	case SyncFull:
		return "full"
	default:
		return fmt.Sprintf("SyncMode(%d)", int(m))
	}
}

// ParseSyncMode is the inverse of SyncMode.String. The empty string is SyncAuto.
func ParseSyncMode(s string) (SyncMode, error) {
	switch s {
	case "", "auto":
		return SyncAuto, nil
	case "none":
		return SyncNone, nil
	case "full":
		return SyncFull, nil
	default:
		return SyncAuto, fmt.Errorf("journal: unknown sync mode %q", s)
	}
}

// Options configures a Journal.
type Options struct {
	Sync   SyncMode
	Logger *slog.Logger
}

// Journal appends framed records to a single file.
//
// Safe for concurrent use.
type Journal struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	mode SyncMode
	size int64
	log  *slog.Logger

	scratch []byte
}

// Open opens or creates the journal at path for appending.
func Open(path string, opts Options) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: stat %s: %w", path, err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Journal{
		f:    f,
		w:    bufio.NewWriter(f),
		path: path,
		mode: opts.Sync,
		size: st.Size(),
		log:  log.With("component", "journal"),
	}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Size returns the number of bytes appended so far, including buffered ones.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Append buffers recs. They are written as one unit with respect to other
// Append calls; Sync makes them durable.
func (j *Journal) Append(recs ...Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return os.ErrClosed
	}

	out := j.scratch[:0]
	var err error
	for _, r := range recs {
		if out, err = appendFrame(out, r); err != nil {
			return err
		}
	}
	j.scratch = out[:0]

	n, err := j.w.Write(out)
	j.size += int64(n)
	if err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Sync flushes buffered records and syncs the file according to the
// journal's SyncMode.
//
// The context can be used to cancel the operation before the file sync
// starts. Records already flushed stay in the OS page cache.
func (j *Journal) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return os.ErrClosed
	}
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("journal: flush: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if j.mode == SyncNone {
		return nil
	}
	if err := syncFile(j.f, j.mode == SyncFull); err != nil {
		return fmt.Errorf("journal: sync: %w", err)
	}
	return nil
}

// Truncate discards every record. Call it only after a checkpoint, when
// nothing in the journal is needed for recovery.
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return os.ErrClosed
	}
	j.w.Reset(j.f)
	if err := j.f.Truncate(0); err != nil {
		return fmt.Errorf("journal: truncate: %w", err)
	}
	if j.mode != SyncNone {
		if err := syncFile(j.f, j.mode == SyncFull); err != nil {
			return fmt.Errorf("journal: sync after truncate: %w", err)
		}
	}
	j.log.Debug("truncated", "bytes", j.size)
	j.size = 0
	return nil
}

// Close flushes buffered records and closes the file. Buffered records are
// flushed but not synced.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	flushErr := j.w.Flush()
	closeErr := j.f.Close()
	j.f = nil
	if flushErr != nil {
		return fmt.Errorf("journal: flush on close: %w", flushErr)
	}
	return closeErr
}
