package tx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Transaction is one physical transaction issued by a Manager.
type Transaction struct {
	id        uint64
	state     atomic.Int32
	backend   Backend
	listeners listenerList
	log       *slog.Logger

	settled    chan struct{} // closed once a commit or abort has finished
	settleOnce sync.Once
	closed     atomic.Bool

	onClose func(*Transaction)
}

func newTransaction(id uint64, backend Backend, log *slog.Logger, onClose func(*Transaction)) *Transaction {
	return &Transaction{
		id:      id,
		backend: backend,
		log:     log,
		settled: make(chan struct{}),
		onClose: onClose,
	}
}

// ID returns the transaction id assigned by the Manager.
func (t *Transaction) ID() uint64 { return t.id }

// State returns the current state. A commit or abort in progress reports
// StateStarted until the backend has finished.
func (t *Transaction) State() State {
	return State(t.state.Load()).visible()
}

// RegisterListener appends l. Listeners registered after the transaction
// finished are never called.
func (t *Transaction) RegisterListener(l Listener) {
	t.listeners.add(l)
}

// Delegate returns a new reusable handle over t.
func (t *Transaction) Delegate() *ReusableTxn {
	return NewReusable(t)
}

// Commit makes the transaction's writes durable.
//
// Sequence:
//  1. Claim STARTED→COMMITTING; if another call already finished or is
//     finishing the transaction, return nil
//  2. Backend.PerformCommit
//  3. Publish COMMITTED
//  4. Notify listeners' OnCommit in registration order
//
// If step 2 fails the transaction is rolled back with PerformAbort, ends
// ABORTED and abort listeners are notified. The returned error joins the
// commit failure and any rollback failure.
func (t *Transaction) Commit() error {
	if !t.state.CompareAndSwap(int32(StateStarted), int32(stateCommitting)) {
		return nil
	}
	defer t.settle()

	if err := t.backend.PerformCommit(t.id); err != nil {
		commitErr := fmt.Errorf("tx %d: commit: %w", t.id, err)
		var rollbackErr error
		if aerr := t.backend.PerformAbort(t.id); aerr != nil {
			rollbackErr = fmt.Errorf("tx %d: rollback: %w", t.id, aerr)
		}
		t.state.Store(int32(StateAborted))
		t.log.Warn("commit failed, rolled back", "tx", t.id, "error", err)
		t.listeners.fireAbort()
		return errors.Join(commitErr, rollbackErr)
	}

	t.state.Store(int32(StateCommitted))
	t.log.Debug("committed", "tx", t.id)
	t.listeners.fireCommit()
	return nil
}

// Abort discards the transaction's writes. It is a no-op unless the
// transaction is STARTED and no other call has claimed it.
func (t *Transaction) Abort() error {
	_, err := t.abort()
	return err
}

// abort reports whether this call performed the STARTED→ABORTED transition.
// A failing PerformAbort still ends in ABORTED.
func (t *Transaction) abort() (bool, error) {
	if !t.state.CompareAndSwap(int32(StateStarted), int32(stateAborting)) {
		return false, nil
	}
	defer t.settle()

	err := t.backend.PerformAbort(t.id)
	t.state.Store(int32(StateAborted))
	t.log.Debug("aborted", "tx", t.id)
	t.listeners.fireAbort()
	if err != nil {
		return true, fmt.Errorf("tx %d: abort: %w", t.id, err)
	}
	return true, nil
}

// Close aborts the transaction if it is still STARTED, releases its
// backend resources and moves it to CLOSED. Only the first call does
// anything. Close implements io.Closer.
func (t *Transaction) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	_, abortErr := t.abort()
	// Either this call or a concurrent Commit/Abort has claimed the
	// transition by now; wait for it to finish.
	<-t.settled

	var releaseErr error
	if err := t.backend.ReleaseResources(t.id); err != nil {
		releaseErr = fmt.Errorf("tx %d: release: %w", t.id, err)
	}
	t.state.Store(int32(StateClosed))
	t.log.Debug("closed", "tx", t.id)
	if t.onClose != nil {
		t.onClose(t)
	}
	return errors.Join(abortErr, releaseErr)
}

func (t *Transaction) settle() {
	t.settleOnce.Do(func() { close(t.settled) })
}

// String implements fmt.Stringer.
func (t *Transaction) String() string {
	return fmt.Sprintf("tx %d (%s)", t.id, t.State())
}
