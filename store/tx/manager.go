package tx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"github.com/joshuapare/xmlstore/pkg/types"
)

// Backend performs the physical side of a transaction. Each method is called
// at most once per transaction id, except PerformAbort which also serves as
// the rollback after a failed PerformCommit.
type Backend interface {
	PerformBegin(id uint64) error
	PerformCommit(id uint64) error
	PerformAbort(id uint64) error
	ReleaseResources(id uint64) error
}

// NopBackend does no physical work. Useful when only the lifecycle matters.
type NopBackend struct{}

func (NopBackend) PerformBegin(uint64) error     { return nil }
func (NopBackend) PerformCommit(uint64) error    { return nil }
func (NopBackend) PerformAbort(uint64) error     { return nil }
func (NopBackend) ReleaseResources(uint64) error { return nil }

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// Manager issues transactions and tracks the ones not yet closed.
//
// The manager is safe for concurrent use.
type Manager struct {
	backend Backend
	log     *slog.Logger

	nextID atomic.Uint64
	active *skipmap.FuncMap[uint64, *Transaction]

	// mu orders Begin against Shutdown so that no transaction is
	// registered after Shutdown has taken its snapshot.
	mu     sync.RWMutex
	closed bool
}

// NewManager creates a manager over backend. A nil backend is NopBackend.
func NewManager(backend Backend, opts ManagerOptions) *Manager {
	if backend == nil {
		backend = NopBackend{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		backend: backend,
		log:     log.With("component", "tx"),
		active: skipmap.NewFunc[uint64, *Transaction](func(a, b uint64) bool {
			return a < b
		}),
	}
}

// Begin starts a new transaction. Ids increase monotonically from 1.
//
// The context can be used to cancel the operation before it starts.
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, types.ErrClosed
	}

	id := m.nextID.Add(1)
	if err := m.backend.PerformBegin(id); err != nil {
		return nil, fmt.Errorf("tx %d: begin: %w", id, err)
	}
	t := newTransaction(id, m.backend, m.log, m.forget)
	m.active.Store(id, t)
	m.log.Debug("began", "tx", id)
	return t, nil
}

// Lookup returns the active transaction with the given id.
func (m *Manager) Lookup(id uint64) (*Transaction, bool) {
	return m.active.Load(id)
}

// Active returns the ids of transactions not yet closed, in ascending order.
func (m *Manager) Active() []uint64 {
	ids := make([]uint64, 0, m.active.Len())
	m.active.Range(func(id uint64, _ *Transaction) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// ActiveCount returns the number of transactions not yet closed.
func (m *Manager) ActiveCount() int {
	return m.active.Len()
}

// Shutdown refuses further Begin calls and closes every active
// transaction, which aborts those still STARTED. It stops early when ctx is
// done. Calling Shutdown again closes whatever is still active.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	var pending []*Transaction
	m.active.Range(func(_ uint64, t *Transaction) bool {
		pending = append(pending, t)
		return true
	})
	if len(pending) > 0 {
		m.log.Info("shutdown closing active transactions", "count", len(pending))
	}

	var errs []error
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) forget(t *Transaction) {
	m.active.Delete(t.id)
}
