package tx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockBackend is a test implementation of Backend that counts calls.
type mockBackend struct {
	mu       sync.Mutex
	begins   []uint64
	commits  []uint64
	aborts   []uint64
	releases []uint64

	failBegin   bool
	failCommit  bool
	failAbort   bool
	failRelease bool
}

var errBackend = errors.New("backend failure")

func (m *mockBackend) PerformBegin(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBegin {
		return errBackend
	}
	m.begins = append(m.begins, id)
	return nil
}

func (m *mockBackend) PerformCommit(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, id)
	if m.failCommit {
		return errBackend
	}
	return nil
}

func (m *mockBackend) PerformAbort(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts = append(m.aborts, id)
	if m.failAbort {
		return errBackend
	}
	return nil
}

func (m *mockBackend) ReleaseResources(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, id)
	if m.failRelease {
		return errBackend
	}
	return nil
}

func (m *mockBackend) counts() (commits, aborts, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits), len(m.aborts), len(m.releases)
}

// countingListener counts notifications.
type countingListener struct {
	commits atomic.Int32
	aborts  atomic.Int32
}

func (c *countingListener) OnCommit() { c.commits.Add(1) }
func (c *countingListener) OnAbort()  { c.aborts.Add(1) }

func (c *countingListener) assert(t *testing.T, commits, aborts int32) {
	t.Helper()
	require.Equal(t, commits, c.commits.Load(), "commit notifications")
	require.Equal(t, aborts, c.aborts.Load(), "abort notifications")
}

// setupTxn returns a fresh transaction from a manager over a mock backend.
func setupTxn(t *testing.T) (*Transaction, *mockBackend, *Manager) {
	t.Helper()
	be := &mockBackend{}
	m := NewManager(be, ManagerOptions{})
	txn, err := m.Begin(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateStarted, txn.State())
	return txn, be, m
}
