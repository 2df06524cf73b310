package tx

import "sync"

// Listener is notified once when a transaction (or handle) commits or aborts.
// Callbacks run synchronously on the goroutine that performed the transition.
type Listener interface {
	OnCommit()
	OnAbort()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Commit func()
	Abort  func()
}

func (f ListenerFuncs) OnCommit() {
	if f.Commit != nil {
		f.Commit()
	}
}

func (f ListenerFuncs) OnAbort() {
	if f.Abort != nil {
		f.Abort()
	}
}

// listenerList is an append-only list. Notification works on a snapshot so
// a listener may register further listeners without deadlocking.
type listenerList struct {
	mu sync.Mutex
	ls []Listener
}

func (l *listenerList) add(x Listener) {
	if x == nil {
		return
	}
	l.mu.Lock()
	l.ls = append(l.ls, x)
	l.mu.Unlock()
}

func (l *listenerList) snapshot() []Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Listener(nil), l.ls...)
}

func (l *listenerList) fireCommit() {
	for _, x := range l.snapshot() {
		x.OnCommit()
	}
}

func (l *listenerList) fireAbort() {
	for _, x := range l.snapshot() {
		x.OnAbort()
	}
}
