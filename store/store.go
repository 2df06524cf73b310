package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/internal/logger"
	"github.com/joshuapare/xmlstore/pkg/types"
	"github.com/joshuapare/xmlstore/store/journal"
	"github.com/joshuapare/xmlstore/store/node"
	"github.com/joshuapare/xmlstore/store/pages"
	"github.com/joshuapare/xmlstore/store/symbols"
	"github.com/joshuapare/xmlstore/store/tx"
	"github.com/joshuapare/xmlstore/store/value"
)

const nodeIDSize = 8

// Options configures Open.
type Options struct {
	// Sync is the journal sync mode applied at every commit.
	Sync journal.SyncMode
	// LockTimeout bounds the wait for the data file lock. Zero waits forever.
	LockTimeout time.Duration
	// CheckpointBytes is the journal size that triggers truncation.
	CheckpointBytes int64
	// CaseInsensitive folds string values to lower case in index keys.
	CaseInsensitive bool
	// ReadOnly opens without a journal; Begin fails.
	ReadOnly bool
	// Logger receives store events. Nil discards them.
	Logger *slog.Logger
}

// Store ties the codecs, the symbol table, the page store and the
// transaction manager together.
type Store struct {
	pages   *pages.Store
	syms    *symbols.Table
	mgr     *tx.Manager
	log     *slog.Logger
	keyOpts value.EncodeOptions

	closeLog func() error
	closed   atomic.Bool
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	ps, err := pages.Open(dir, pages.Options{
		Sync:            opts.Sync,
		Timeout:         opts.LockTimeout,
		CheckpointBytes: opts.CheckpointBytes,
		ReadOnly:        opts.ReadOnly,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	var persist symbols.Persister = ps
	if opts.ReadOnly {
		persist = nil
	}
	syms := symbols.New(symbols.Options{Persister: persist})
	if err := ps.LoadSymbols(syms); err != nil {
		ps.Close()
		return nil, fmt.Errorf("store: load symbols: %w", err)
	}

	s := &Store{
		pages:    ps,
		syms:     syms,
		mgr:      tx.NewManager(ps, tx.ManagerOptions{Logger: log}),
		log:      log.With("component", "store"),
		keyOpts:  value.EncodeOptions{CaseInsensitive: opts.CaseInsensitive},
		closeLog: func() error { return nil },
	}
	s.log.Info("opened", "dir", dir, "symbols", syms.String(), "read_only", opts.ReadOnly)
	return s, nil
}

// OpenConfig opens the store described by cfg, building its logger from
// cfg.Log.
func OpenConfig(cfg Config) (*Store, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logger.New(cfg.Log.loggerOptions())
	if err != nil {
		return nil, fmt.Errorf("store: logger: %w", err)
	}
	opts.Logger = log

	s, err := Open(cfg.Dir, opts)
	if err != nil {
		closeLog()
		return nil, err
	}
	s.closeLog = closeLog
	return s, nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*tx.Transaction, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}
	return s.mgr.Begin(ctx)
}

// Delegate returns a reusable handle on owner for a sub-operation.
func (s *Store) Delegate(owner *tx.Transaction) *tx.ReusableTxn {
	return owner.Delegate()
}

// WithDelegate runs fn with a fresh handle on owner. If fn succeeds the
// owner still decides whether to commit. If fn fails the handle aborts and
// closes the shared transaction.
func (s *Store) WithDelegate(owner *tx.Transaction, fn func(h tx.Txn) error) error {
	h := owner.Delegate()
	fnErr := fn(h)
	var abortErr error
	if fnErr != nil {
		abortErr = h.Abort()
	} else {
		_ = h.Commit()
	}
	closeErr := h.Close()
	return errors.Join(fnErr, abortErr, closeErr)
}

// PutNode writes n under id in t.
func (s *Store) PutNode(t tx.Txn, id uint64, n node.Node) error {
	if err := s.writable(t); err != nil {
		return err
	}
	rec, err := node.Encode(n, s.syms)
	if err != nil {
		return err
	}
	return s.pages.Put(t.ID(), pages.BucketNodes, nodeKey(id), rec)
}

// GetNode returns the committed node stored under id.
func (s *Store) GetNode(id uint64) (node.Node, error) {
	if s.closed.Load() {
		return node.Node{}, types.ErrClosed
	}
	rec, ok, err := s.pages.Get(pages.BucketNodes, nodeKey(id))
	if err != nil {
		return node.Node{}, err
	}
	if !ok {
		return node.Node{}, fmt.Errorf("store: node %d: %w", id, types.ErrNotFound)
	}
	return node.Decode(rec, s.syms)
}

// DeleteNode removes the node stored under id in t.
func (s *Store) DeleteNode(t tx.Txn, id uint64) error {
	if err := s.writable(t); err != nil {
		return err
	}
	return s.pages.Delete(t.ID(), pages.BucketNodes, nodeKey(id))
}

// IndexValue records that nodeID carries v.
func (s *Store) IndexValue(t tx.Txn, v value.Value, nodeID uint64) error {
	if err := s.writable(t); err != nil {
		return err
	}
	key, err := s.indexKey(v, nodeID)
	if err != nil {
		return err
	}
	return s.pages.Put(t.ID(), pages.BucketValues, key, nil)
}

// RemoveValue drops the index entry for v on nodeID.
func (s *Store) RemoveValue(t tx.Txn, v value.Value, nodeID uint64) error {
	if err := s.writable(t); err != nil {
		return err
	}
	key, err := s.indexKey(v, nodeID)
	if err != nil {
		return err
	}
	return s.pages.Delete(t.ID(), pages.BucketValues, key)
}

// ScanValues calls fn for every committed index entry whose value lies in
// [lo, hi], in value order and then node id order. lo and hi must be of the
// same type. With case-insensitive keys, values arrive lower-cased.
func (s *Store) ScanValues(lo, hi value.Value, fn func(v value.Value, nodeID uint64) error) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if lo.Type() != hi.Type() {
		return types.Encodingf("store: scan bounds are %s and %s", lo.Type(), hi.Type())
	}
	from, err := s.valuePrefix(lo)
	if err != nil {
		return err
	}
	hiPrefix, err := s.valuePrefix(hi)
	if err != nil {
		return err
	}
	if bytes.Compare(from, hiPrefix) > 0 {
		return nil
	}
	to := buf.AppendU64(hiPrefix, math.MaxUint64)

	return s.pages.Scan(pages.BucketValues, from, to, func(key, _ []byte) error {
		v, id, err := splitIndexKey(key)
		if err != nil {
			return err
		}
		return fn(v, id)
	})
}

// Nodes calls fn for every committed node in id order.
func (s *Store) Nodes(fn func(id uint64, n node.Node) error) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.pages.Scan(pages.BucketNodes, nil, nil, func(key, rec []byte) error {
		if len(key) != nodeIDSize {
			return types.Corruptf("store: node key %x is not %d bytes", key, nodeIDSize)
		}
		id := buf.U64BE(key)
		n, err := node.Decode(rec, s.syms)
		if err != nil {
			return fmt.Errorf("store: node %d: %w", id, err)
		}
		return fn(id, n)
	})
}

// Entries calls fn for every committed index entry across all value types,
// in key order.
func (s *Store) Entries(fn func(v value.Value, nodeID uint64) error) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.pages.Scan(pages.BucketValues, nil, nil, func(key, _ []byte) error {
		v, id, err := splitIndexKey(key)
		if err != nil {
			return err
		}
		return fn(v, id)
	})
}

// Symbols returns the store's symbol table.
func (s *Store) Symbols() *symbols.Table { return s.syms }

// Manager returns the transaction manager.
func (s *Store) Manager() *tx.Manager { return s.mgr }

// Pages returns the underlying page store.
func (s *Store) Pages() *pages.Store { return s.pages }

// Close aborts every open transaction and closes the store. Only the first
// call does anything.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	shutdownErr := s.mgr.Shutdown(context.Background())
	pagesErr := s.pages.Close()
	s.log.Info("closed")
	logErr := s.closeLog()
	return errors.Join(shutdownErr, pagesErr, logErr)
}

func (s *Store) writable(t tx.Txn) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if st := t.State(); st != tx.StateStarted {
		return types.Statef("store: tx %d is %s", t.ID(), st)
	}
	return nil
}

func nodeKey(id uint64) []byte {
	return buf.AppendU64(make([]byte, 0, nodeIDSize), id)
}
