package tx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupHandle returns a shared transaction and one handle on it, each with a
// counting listener.
func setupHandle(t *testing.T) (*Transaction, *countingListener, *ReusableTxn, *countingListener, *mockBackend) {
	t.Helper()
	shared, be, _ := setupTxn(t)
	sharedL := &countingListener{}
	shared.RegisterListener(sharedL)

	h := shared.Delegate()
	hL := &countingListener{}
	h.RegisterListener(hL)
	return shared, sharedL, h, hL, be
}

func Test_Reusable_CommitHasNoEffect(t *testing.T) {
	shared, sharedL, h, hL, be := setupHandle(t)

	require.NoError(t, h.Commit())

	require.Equal(t, StateStarted, h.State())
	hL.assert(t, 0, 0)
	require.Equal(t, StateStarted, shared.State())
	sharedL.assert(t, 0, 0)
	require.True(t, h.CommitRequested())

	commits, aborts, releases := be.counts()
	require.Zero(t, commits+aborts+releases)
}

func Test_Reusable_CommitAndCloseHasNoEffect(t *testing.T) {
	shared, sharedL, h, hL, be := setupHandle(t)

	require.NoError(t, h.Commit())
	require.NoError(t, h.Close())

	require.Equal(t, StateStarted, h.State())
	hL.assert(t, 0, 0)
	require.Equal(t, StateStarted, shared.State())
	sharedL.assert(t, 0, 0)

	commits, aborts, releases := be.counts()
	require.Zero(t, commits+aborts+releases)

	// The owner can still commit.
	require.NoError(t, shared.Commit())
	sharedL.assert(t, 1, 0)
	hL.assert(t, 0, 0)
}

func Test_Reusable_Abort(t *testing.T) {
	shared, sharedL, h, hL, _ := setupHandle(t)

	require.NoError(t, h.Abort())

	require.Equal(t, StateAborted, h.State())
	hL.assert(t, 0, 1)
	require.Equal(t, StateAborted, shared.State())
	sharedL.assert(t, 0, 1)
}

func Test_Reusable_AbortAndClose(t *testing.T) {
	shared, sharedL, h, hL, be := setupHandle(t)

	require.NoError(t, h.Abort())
	require.NoError(t, h.Close())

	require.Equal(t, StateClosed, h.State())
	hL.assert(t, 0, 1)
	require.Equal(t, StateClosed, shared.State())
	sharedL.assert(t, 0, 1)

	_, aborts, releases := be.counts()
	require.Equal(t, 1, aborts)
	require.Equal(t, 1, releases)
}

func Test_Reusable_RepeatedAbortOnlyAbortsOnce(t *testing.T) {
	shared, sharedL, h, hL, be := setupHandle(t)

	for range 3 {
		require.NoError(t, h.Abort())
	}

	require.Equal(t, StateAborted, h.State())
	hL.assert(t, 0, 1)
	require.Equal(t, StateAborted, shared.State())
	sharedL.assert(t, 0, 1)

	_, aborts, _ := be.counts()
	require.Equal(t, 1, aborts)
}

func Test_Reusable_CloseWithoutCommitAborts(t *testing.T) {
	shared, sharedL, h, hL, _ := setupHandle(t)

	require.NoError(t, h.Close())

	require.Equal(t, StateClosed, h.State())
	hL.assert(t, 0, 1)
	require.Equal(t, StateClosed, shared.State())
	sharedL.assert(t, 0, 1)
}

func Test_Reusable_RepeatedCloseOnlyAbortsOnce(t *testing.T) {
	shared, sharedL, h, hL, be := setupHandle(t)

	for range 3 {
		require.NoError(t, h.Close())
	}

	require.Equal(t, StateClosed, h.State())
	hL.assert(t, 0, 1)
	require.Equal(t, StateClosed, shared.State())
	sharedL.assert(t, 0, 1)

	_, aborts, releases := be.counts()
	require.Equal(t, 1, aborts)
	require.Equal(t, 1, releases)
}

func Test_Reusable_CloseOnTwoHandlesAbortsOnce(t *testing.T) {
	shared, sharedL, h1, l1, _ := setupHandle(t)
	h2 := shared.Delegate()

	require.NoError(t, h1.Close())

	l2 := &countingListener{}
	h2.RegisterListener(l2)
	require.NoError(t, h2.Close())

	l1.assert(t, 0, 1)
	l2.assert(t, 0, 0)
	sharedL.assert(t, 0, 1)
	require.Equal(t, StateClosed, h2.State())
}

func Test_Reusable_AbortOnTwoHandlesAbortsOnce(t *testing.T) {
	shared, sharedL, h1, l1, _ := setupHandle(t)
	h2 := shared.Delegate()

	require.NoError(t, h1.Abort())

	l2 := &countingListener{}
	h2.RegisterListener(l2)
	require.NoError(t, h2.Abort())

	l1.assert(t, 0, 1)
	l2.assert(t, 0, 0)
	sharedL.assert(t, 0, 1)
	require.Equal(t, StateAborted, h1.State())
	require.Equal(t, StateStarted, h2.State(), "h2 did not perform the abort")
}

func Test_Reusable_OwnerCommitDoesNotNotifyHandle(t *testing.T) {
	shared, sharedL, h, hL, _ := setupHandle(t)

	require.NoError(t, shared.Commit())
	require.NoError(t, h.Abort())
	require.NoError(t, h.Close())

	sharedL.assert(t, 1, 0)
	hL.assert(t, 0, 0)
	require.Equal(t, StateClosed, h.State())
	require.Equal(t, StateClosed, shared.State())
}

func Test_Reusable_IDIsShared(t *testing.T) {
	shared, _, h, _, _ := setupHandle(t)
	require.Equal(t, shared.ID(), h.ID())
	require.Same(t, shared, h.Shared())
}

func Test_Reusable_ConcurrentHandles(t *testing.T) {
	shared, sharedL, _, _, be := setupHandle(t)

	const handles = 32
	listeners := make([]*countingListener, handles)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range handles {
		h := shared.Delegate()
		listeners[i] = &countingListener{}
		h.RegisterListener(listeners[i])
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				_ = h.Abort()
			}
			_ = h.Close()
		}()
	}
	close(start)
	wg.Wait()

	var total int32
	for _, l := range listeners {
		require.Zero(t, l.commits.Load())
		total += l.aborts.Load()
	}
	require.Equal(t, int32(1), total, "exactly one handle reports the abort")
	sharedL.assert(t, 0, 1)

	_, aborts, releases := be.counts()
	require.Equal(t, 1, aborts)
	require.Equal(t, 1, releases)
	require.Equal(t, StateClosed, shared.State())
}
