package tx

import "strconv"

// State is the externally visible lifecycle state of a transaction.
type State int32

const (
	StateStarted State = iota
	StateCommitted
	StateAborted
	StateClosed
)

// In-flight states. A winner holds one of these while the backend works;
// State() reports them as StateStarted.
const (
	stateCommitting State = 100 + iota
	stateAborting
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateCommitted:
		return "COMMITTED"
	case StateAborted:
		return "ABORTED"
	case StateClosed:
		return "CLOSED"
	case stateCommitting:
		return "COMMITTING"
	case stateAborting:
		return "ABORTING"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// visible folds in-flight states into StateStarted.
func (s State) visible() State {
	if s == stateCommitting || s == stateAborting {
		return StateStarted
	}
	return s
}

// Txn is the surface shared by a Transaction and its reusable handles.
type Txn interface {
	ID() uint64
	State() State
	Commit() error
	Abort() error
	Close() error
	RegisterListener(l Listener)
}

var (
	_ Txn = (*Transaction)(nil)
	_ Txn = (*ReusableTxn)(nil)
)
