// Package tx provides the transaction lifecycle for store writes.
//
// # Overview
//
// A Transaction moves through four states:
//
//	STARTED ──Commit()──▶ COMMITTED ──Close()──▶ CLOSED
//	   │
//	   ├──Abort()───▶ ABORTED ──Close()──▶ CLOSED
//	   │
//	   └──Close()───▶ (abort) ──▶ CLOSED
//
// The STARTED→COMMITTED and STARTED→ABORTED transitions are claimed with a
// single compare-and-swap. Exactly one caller wins; it performs the physical
// commit or abort through the Backend, publishes the new state and then
// notifies listeners in registration order. Losing callers return at once
// without blocking and without error. Repeated Commit, Abort and Close calls
// are no-ops.
//
// # Physical Work
//
// The Manager owns a Backend that does the physical work:
//
//	type Backend interface {
//	    PerformBegin(id uint64) error
//	    PerformCommit(id uint64) error
//	    PerformAbort(id uint64) error
//	    ReleaseResources(id uint64) error
//	}
//
// If PerformCommit fails the transaction is rolled back through PerformAbort,
// ends ABORTED, abort listeners fire and Commit returns the error.
//
// # Reusable Handles
//
// A ReusableTxn is a handle that lets sub-operations share the owner's
// Transaction without being able to commit it:
//
//	t, _ := mgr.Begin(ctx)
//	h := t.Delegate()
//	doWork(h)      // may call h.Abort() and must call h.Close()
//	t.Commit()     // only the owner commits
//
// Commit on a handle only records that the sub-operation finished
// successfully, so the following Close leaves the shared Transaction alone.
// Abort on a handle aborts the shared Transaction; the handle reports the
// abort to its own listeners only when its call is the one that performed it.
// Close without a prior Commit aborts (if nothing else has finished the
// transaction) and closes the shared Transaction.
//
// Every handle has its own listener list. Listeners registered on the
// Transaction and listeners registered on a handle never see each other's
// events twice.
//
// # Concurrency
//
// All types in this package are safe for concurrent use. No method blocks
// except Close, which waits for a commit or abort that another goroutine
// has already claimed to finish before releasing resources.
package tx
