package tx

import (
	"errors"
	"sync/atomic"
)

// ReusableTxn is a handle on a shared Transaction for sub-operations that
// must be able to abort the work but never commit it.
//
// The handle keeps its own state and listeners. Its State starts as
// StateStarted and changes only through the handle's own Abort and Close.
type ReusableTxn struct {
	shared          *Transaction
	state           atomic.Int32
	listeners       listenerList
	commitRequested atomic.Bool
	closed          atomic.Bool
}

// NewReusable wraps shared in a new handle.
func NewReusable(shared *Transaction) *ReusableTxn {
	return &ReusableTxn{shared: shared}
}

// ID returns the shared transaction's id.
func (r *ReusableTxn) ID() uint64 { return r.shared.ID() }

// State returns the handle's local state.
func (r *ReusableTxn) State() State { return State(r.state.Load()) }

// Shared returns the underlying transaction.
func (r *ReusableTxn) Shared() *Transaction { return r.shared }

// RegisterListener adds l to the handle's own listeners.
func (r *ReusableTxn) RegisterListener(l Listener) {
	r.listeners.add(l)
}

// Commit records that the sub-operation completed. The shared transaction
// is not touched and no listener fires; the owner commits.
func (r *ReusableTxn) Commit() error {
	r.commitRequested.Store(true)
	return nil
}

// CommitRequested reports whether Commit has been called on the handle.
func (r *ReusableTxn) CommitRequested() bool {
	return r.commitRequested.Load()
}

// Abort aborts the shared transaction. The handle moves to ABORTED and
// notifies its listeners only if this call performed the abort.
func (r *ReusableTxn) Abort() error {
	performed, err := r.shared.abort()
	if performed {
		r.state.Store(int32(StateAborted))
		r.listeners.fireAbort()
	}
	return err
}

// Close finishes the handle. After Commit it only releases the handle;
// otherwise it aborts as Abort does, closes the shared transaction and
// moves the handle to CLOSED. Only the first call does anything.
func (r *ReusableTxn) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if r.commitRequested.Load() {
		return nil
	}

	abortErr := r.Abort()
	closeErr := r.shared.Close()
	r.state.Store(int32(StateClosed))
	return errors.Join(abortErr, closeErr)
}
