// Package pages is the bbolt-backed page store behind the transaction
// manager.
//
// Writes made through a transaction are staged in memory until commit.
// Commit protocol:
//  1. Append the staged PUT/DELETE records and COMMIT to the journal
//  2. Sync the journal (per its SyncMode)
//  3. Apply the batch to bbolt in a single Update
//  4. Append CHECKPOINT, and truncate the journal once it grows past
//     Options.CheckpointBytes
//
// Open replays the journal: batches committed after the last checkpoint are
// applied again (puts and deletes are idempotent) and the journal is
// truncated.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zhangyunhao116/skipmap"
	"go.etcd.io/bbolt"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/pkg/types"
	"github.com/joshuapare/xmlstore/store/journal"
	"github.com/joshuapare/xmlstore/store/symbols"
	"github.com/joshuapare/xmlstore/store/tx"
)

// Bucket names.
const (
	BucketNodes   = "nodes"
	BucketValues  = "values"
	BucketSymbols = "symbols"
)

// File names inside the store directory.
const (
	DataFile    = "pages.db"
	JournalFile = "journal.log"
)

// Key prefixes in the symbols bucket.
const (
	symbolNamePrefix      = 'n'
	symbolNamespacePrefix = 's'
)

// DefaultCheckpointBytes is the journal size that triggers truncation.
const DefaultCheckpointBytes = 4 << 20

var buckets = []string{BucketNodes, BucketValues, BucketSymbols}

// Options configures a Store.
type Options struct {
	// Sync is the journal sync mode used at commit.
	Sync journal.SyncMode
	// Timeout bounds the wait for bbolt's file lock. Zero waits forever.
	Timeout time.Duration
	// CheckpointBytes is the journal size after which a checkpoint truncates
	// it. Zero means DefaultCheckpointBytes.
	CheckpointBytes int64
	// ReadOnly opens the data file without the journal. Transactions fail.
	ReadOnly bool
	// Logger receives recovery and checkpoint events. Nil discards them.
	Logger *slog.Logger
}

type op struct {
	del    bool
	bucket string
	key    []byte
	value  []byte
}

// batch is the staged write set of one transaction. Once sealed by commit
// or abort it accepts no more writes.
type batch struct {
	mu        sync.Mutex
	ops       []op
	sealed    bool
	journaled bool
}

func (b *batch) add(id uint64, o op) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return types.Statef("pages: tx %d is finishing", id)
	}
	b.ops = append(b.ops, o)
	return nil
}

// seal closes the batch to writes and returns its operations.
func (b *batch) seal() []op {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
	return b.ops
}

// journalLog is the part of *journal.Journal the store writes through.
type journalLog interface {
	Append(recs ...journal.Record) error
	Sync(ctx context.Context) error
	Size() int64
	Truncate() error
	Close() error
}

// Store is a bbolt database plus a journal.
//
// Safe for concurrent use. Commits are serialized.
type Store struct {
	db       *bbolt.DB
	jr       journalLog
	log      *slog.Logger
	dir      string
	ckptSize int64

	staged   *skipmap.FuncMap[uint64, *batch]
	commitMu sync.Mutex
}

var (
	_ tx.Backend        = (*Store)(nil)
	_ symbols.Persister = (*Store)(nil)
)

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "pages")

	if opts.ReadOnly {
		if _, err := os.Stat(filepath.Join(dir, DataFile)); err != nil {
			return nil, fmt.Errorf("pages: open %s: %w", dir, err)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pages: create %s: %w", dir, err)
	}
	db, err := bbolt.Open(filepath.Join(dir, DataFile), 0o600, &bbolt.Options{
		Timeout:  opts.Timeout,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("pages: open %s: %w", dir, err)
	}

	s := &Store{
		db:       db,
		log:      log,
		dir:      dir,
		ckptSize: opts.CheckpointBytes,
		staged: skipmap.NewFunc[uint64, *batch](func(a, b uint64) bool {
			return a < b
		}),
	}
	if s.ckptSize <= 0 {
		s.ckptSize = DefaultCheckpointBytes
	}

	jpath := filepath.Join(dir, JournalFile)
	if opts.ReadOnly {
		if res, err := journal.Replay(jpath); err == nil && len(res.Committed) > 0 {
			log.Warn("read-only open skips unapplied journal batches", "batches", len(res.Committed))
		}
		return s, nil
	}

	if err := db.Update(func(btx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := btx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("pages: %w", err)
	}

	if err := s.recover(jpath); err != nil {
		db.Close()
		return nil, err
	}

	jr, err := journal.Open(jpath, journal.Options{Sync: opts.Sync, Logger: opts.Logger})
	if err != nil {
		db.Close()
		return nil, err
	}
	// Everything the journal held is now in bbolt, and a torn tail must not
	// sit in front of new records.
	if err := jr.Truncate(); err != nil {
		jr.Close()
		db.Close()
		return nil, err
	}
	s.jr = jr
	return s, nil
}

// recover applies committed journal batches that may not have reached bbolt.
func (s *Store) recover(jpath string) error {
	res, err := journal.Replay(jpath)
	if err != nil {
		return fmt.Errorf("pages: replay: %w", err)
	}
	if res.TornTail {
		s.log.Warn("journal has a torn tail", "intact_bytes", res.ValidBytes)
	}
	for _, id := range res.Incomplete {
		s.log.Warn("discarding incomplete transaction", "tx", id)
	}
	if len(res.Committed) == 0 {
		return nil
	}

	err = s.db.Update(func(btx *bbolt.Tx) error {
		for _, b := range res.Committed {
			ops := make([]op, 0, len(b.Ops))
			for _, r := range b.Ops {
				ops = append(ops, op{del: r.Kind == journal.KindDelete, bucket: r.Bucket, key: r.Key, value: r.Value})
			}
			if err := applyOps(btx, ops); err != nil {
				return fmt.Errorf("tx %d: %w", b.TxID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pages: recover: %w", err)
	}
	s.log.Info("recovered committed transactions", "count", len(res.Committed))
	return nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// ReadOnly reports whether the store was opened without a journal.
func (s *Store) ReadOnly() bool { return s.jr == nil }

// --- tx.Backend ---

// PerformBegin opens a staging batch for id.
func (s *Store) PerformBegin(id uint64) error {
	if s.jr == nil {
		return types.Statef("pages: store is read-only")
	}
	if _, loaded := s.staged.LoadOrStore(id, &batch{}); loaded {
		return types.Statef("pages: tx %d already open", id)
	}
	return s.jr.Append(journal.Record{Kind: journal.KindBegin, TxID: id})
}

// PerformCommit journals and applies the staged batch of id.
func (s *Store) PerformCommit(id uint64) error {
	b, ok := s.staged.LoadAndDelete(id)
	if !ok {
		return types.Statef("pages: tx %d is not open", id)
	}
	ops := b.seal()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	recs := make([]journal.Record, 0, len(ops)+1)
	for _, o := range ops {
		kind := journal.KindPut
		if o.del {
			kind = journal.KindDelete
		}
		recs = append(recs, journal.Record{Kind: kind, TxID: id, Bucket: o.bucket, Key: o.key, Value: o.value})
	}
	recs = append(recs, journal.Record{Kind: journal.KindCommit, TxID: id})
	if err := s.jr.Append(recs...); err != nil {
		return err
	}
	if err := s.jr.Sync(context.Background()); err != nil {
		return err
	}
	b.journaled = true

	if err := s.db.Update(func(btx *bbolt.Tx) error { return applyOps(btx, ops) }); err != nil {
		// Keep the batch around so the rollback can cancel the journaled
		// commit.
		s.staged.Store(id, b)
		return fmt.Errorf("pages: apply tx %d: %w", id, err)
	}
	// The batch is applied; a failed checkpoint only leaves a longer
	// journal for the next checkpoint or Open to truncate.
	if err := s.checkpoint(); err != nil {
		s.log.Warn("checkpoint failed", "tx", id, "error", err)
	}
	return nil
}

// PerformAbort drops the staged batch of id.
func (s *Store) PerformAbort(id uint64) error {
	if s.jr == nil {
		return nil
	}
	b, ok := s.staged.LoadAndDelete(id)
	if ok {
		b.seal()
	}
	if err := s.jr.Append(journal.Record{Kind: journal.KindAbort, TxID: id}); err != nil {
		return err
	}
	if ok && b.journaled {
		return s.jr.Sync(context.Background())
	}
	return nil
}

// ReleaseResources drops whatever is left of id's batch.
func (s *Store) ReleaseResources(id uint64) error {
	if b, ok := s.staged.LoadAndDelete(id); ok {
		b.seal()
	}
	return nil
}

// checkpoint must be called with commitMu held.
func (s *Store) checkpoint() error {
	if err := s.jr.Append(journal.Record{Kind: journal.KindCheckpoint}); err != nil {
		return err
	}
	if s.jr.Size() < s.ckptSize {
		return nil
	}
	s.log.Debug("checkpoint truncates journal", "bytes", s.jr.Size())
	return s.jr.Truncate()
}

func applyOps(btx *bbolt.Tx, ops []op) error {
	for _, o := range ops {
		bk := btx.Bucket([]byte(o.bucket))
		if bk == nil {
			return fmt.Errorf("bucket %s: %w", o.bucket, types.ErrNotFound)
		}
		var err error
		if o.del {
			err = bk.Delete(o.key)
		} else {
			err = bk.Put(o.key, o.value)
		}
		if err != nil {
			return fmt.Errorf("%s %x: %w", o.bucket, o.key, err)
		}
	}
	return nil
}

// --- staged writes ---

// Put stages key=value in bucket for transaction id.
func (s *Store) Put(id uint64, bucket string, key, value []byte) error {
	return s.stage(id, op{bucket: bucket, key: key, value: value})
}

// Delete stages the removal of key from bucket for transaction id.
func (s *Store) Delete(id uint64, bucket string, key []byte) error {
	return s.stage(id, op{del: true, bucket: bucket, key: key})
}

func (s *Store) stage(id uint64, o op) error {
	if !knownBucket(o.bucket) {
		return fmt.Errorf("pages: bucket %q: %w", o.bucket, types.ErrNotFound)
	}
	if len(o.key) == 0 {
		return types.Encodingf("pages: empty key")
	}
	b, ok := s.staged.Load(id)
	if !ok {
		return types.Statef("pages: tx %d is not open", id)
	}
	o.key = bytes.Clone(o.key)
	if !o.del {
		o.value = append([]byte{}, o.value...)
	}
	return b.add(id, o)
}

// Pending returns the number of staged operations of id.
func (s *Store) Pending(id uint64) int {
	b, ok := s.staged.Load(id)
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

func knownBucket(name string) bool {
	for _, b := range buckets {
		if b == name {
			return true
		}
	}
	return false
}

// --- committed reads ---

// Get returns a copy of the committed value of key in bucket.
func (s *Store) Get(bucket string, key []byte) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(btx *bbolt.Tx) error {
		bk := btx.Bucket([]byte(bucket))
		if bk == nil {
			return nil
		}
		// Committed values, empty ones included, come back non-nil.
		if v := bk.Get(key); v != nil {
			out = append([]byte{}, v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("pages: get: %w", err)
	}
	return out, found, nil
}

// Scan calls fn for every committed key in bucket with from <= key <= to,
// in byte order. A nil from starts at the first key, a nil to runs to the
// end. Keys and values passed to fn are copies. Returning an error from fn
// stops the scan and is returned as is.
func (s *Store) Scan(bucket string, from, to []byte, fn func(key, value []byte) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		bk := btx.Bucket([]byte(bucket))
		if bk == nil {
			return nil
		}
		c := bk.Cursor()
		var k, v []byte
		if from == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(from)
		}
		for ; k != nil; k, v = c.Next() {
			if to != nil && bytes.Compare(k, to) > 0 {
				return nil
			}
			if err := fn(bytes.Clone(k), bytes.Clone(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of committed keys in bucket.
func (s *Store) Count(bucket string) (int, error) {
	var n int
	err := s.db.View(func(btx *bbolt.Tx) error {
		if bk := btx.Bucket([]byte(bucket)); bk != nil {
			n = bk.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// --- symbols.Persister ---

// SaveName stores a name symbol directly, outside any transaction.
func (s *Store) SaveName(id uint32, local string) error {
	key := buf.AppendU32([]byte{symbolNamePrefix}, id)
	return s.saveSymbol(key, local)
}

// SaveNamespace stores a namespace symbol directly, outside any transaction.
func (s *Store) SaveNamespace(id uint16, uri string) error {
	key := buf.AppendU16([]byte{symbolNamespacePrefix}, id)
	return s.saveSymbol(key, uri)
}

func (s *Store) saveSymbol(key []byte, value string) error {
	if s.jr == nil {
		return types.Statef("pages: store is read-only")
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket([]byte(BucketSymbols)).Put(key, []byte(value))
	})
}

// LoadSymbols installs every persisted symbol into tbl.
func (s *Store) LoadSymbols(tbl *symbols.Table) error {
	return s.Scan(BucketSymbols, nil, nil, func(k, v []byte) error {
		c := buf.NewCursor(k)
		prefix, _ := c.U8()
		switch prefix {
		case symbolNamePrefix:
			id, ok := c.U32()
			if !ok || c.Remaining() != 0 {
				return types.Corruptf("pages: symbol key %x", k)
			}
			return tbl.LoadName(id, string(v))
		case symbolNamespacePrefix:
			id, ok := c.U16()
			if !ok || c.Remaining() != 0 {
				return types.Corruptf("pages: symbol key %x", k)
			}
			return tbl.LoadNamespace(id, string(v))
		default:
			return types.Corruptf("pages: symbol key %x", k)
		}
	})
}

// Close closes the journal and the database. Staged batches are dropped.
func (s *Store) Close() error {
	var errs []error
	if s.jr != nil {
		errs = append(errs, s.jr.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
