package store

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/xmlstore/internal/logger"
	"github.com/joshuapare/xmlstore/pkg/types"
	"github.com/joshuapare/xmlstore/store/journal"
	"github.com/joshuapare/xmlstore/store/node"
	"github.com/joshuapare/xmlstore/store/tx"
	"github.com/joshuapare/xmlstore/store/value"
)

type hit struct {
	v  string
	id uint64
}

func openStore(t *testing.T, dir string, opts Options) *Store {
	t.Helper()
	if opts.Sync == journal.SyncAuto {
		opts.Sync = journal.SyncNone
	}
	s, err := Open(dir, opts)
	require.NoError(t, err)
	return s
}

func scan(t *testing.T, s *Store, lo, hi value.Value) []hit {
	t.Helper()
	var hits []hit
	require.NoError(t, s.ScanValues(lo, hi, func(v value.Value, id uint64) error {
		hits = append(hits, hit{v.String(), id})
		return nil
	}))
	return hits
}

func Test_Store_NodeRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, Options{})
	ctx := context.Background()

	year := node.Attr(types.QName{Local: "year", Namespace: "urn:books", Prefix: "b"}, "1960")
	id := node.IDAttr(types.QName{Local: "isbn"}, "0-06-112008-1")

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 1, year))
	require.NoError(t, s.PutNode(txn, 2, id))

	_, err = s.GetNode(1)
	require.ErrorIs(t, err, types.ErrNotFound, "uncommitted nodes are invisible")

	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	got, err := s.GetNode(1)
	require.NoError(t, err)
	require.Equal(t, year, got)
	require.NoError(t, s.Close())

	s2 := openStore(t, dir, Options{})
	defer s2.Close()
	got, err = s2.GetNode(2)
	require.NoError(t, err)
	require.Equal(t, id, got)
	got, err = s2.GetNode(1)
	require.NoError(t, err)
	require.Equal(t, year, got)
}

func Test_Store_DeleteNode(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()
	ctx := context.Background()

	t1, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutNode(t1, 9, node.Element(types.QName{Local: "book"})))
	require.NoError(t, t1.Commit())
	require.NoError(t, t1.Close())

	t2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.DeleteNode(t2, 9))
	require.NoError(t, t2.Commit())
	require.NoError(t, t2.Close())

	_, err = s.GetNode(9)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func Test_Store_AbortedWritesDisappear(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 1, node.Element(types.QName{Local: "a"})))
	require.NoError(t, s.IndexValue(txn, value.Integer(1), 1))
	require.NoError(t, txn.Abort())

	require.ErrorIs(t, s.PutNode(txn, 2, node.Element(types.QName{Local: "a"})), types.ErrState)
	require.ErrorIs(t, s.IndexValue(txn, value.Integer(2), 2), types.ErrState)
	require.NoError(t, txn.Close())

	_, err = s.GetNode(1)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.Empty(t, scan(t, s, value.Integer(0), value.Integer(10)))
}

func Test_Store_InvalidNodeRejected(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer txn.Close()

	err = s.PutNode(txn, 1, node.Node{Kind: node.KindElement})
	require.ErrorIs(t, err, types.ErrEncoding)
	require.Zero(t, s.Pages().Pending(txn.ID()))
}

func Test_Store_ScanValuesInDomainOrder(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	for i, n := range []int64{1960, 753, -5, 1960, 0, 42} {
		require.NoError(t, s.IndexValue(txn, value.Integer(n), uint64(10-i)))
	}
	require.NoError(t, s.IndexValue(txn, value.String("753"), 99))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	all := scan(t, s, value.Integer(-100), value.Integer(10000))
	require.Equal(t, []hit{
		{"-5", 8}, {"0", 6}, {"42", 5}, {"753", 9}, {"1960", 7}, {"1960", 10},
	}, all)

	require.Equal(t, []hit{{"42", 5}, {"753", 9}},
		scan(t, s, value.Integer(42), value.Integer(753)), "bounds are inclusive")
	require.Empty(t, scan(t, s, value.Integer(2000), value.Integer(1000)))

	err = s.ScanValues(value.Integer(0), value.String("z"), func(value.Value, uint64) error { return nil })
	require.ErrorIs(t, err, types.ErrEncoding)
}

func Test_Store_ScanStringsExcludesLongerKeys(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	for i, w := range []string{"ab", "abc", "abcd", "abd", "b"} {
		require.NoError(t, s.IndexValue(txn, value.String(w), uint64(i+1)))
	}
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	require.Equal(t, []hit{{"ab", 1}, {"abc", 2}},
		scan(t, s, value.String("ab"), value.String("abc")))
	require.Equal(t, []hit{{"abcd", 3}, {"abd", 4}},
		scan(t, s, value.String("abca"), value.String("abz")))
}

func Test_Store_CaseInsensitiveIndex(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{CaseInsensitive: true})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.IndexValue(txn, value.String("Alpha"), 1))
	require.NoError(t, s.IndexValue(txn, value.String("alpha"), 2))
	require.NoError(t, s.IndexValue(txn, value.String("BETA"), 3))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	require.Equal(t, []hit{{"alpha", 1}, {"alpha", 2}},
		scan(t, s, value.String("ALPHA"), value.String("ALPHA")))

	t2, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.RemoveValue(t2, value.String("ALPHA"), 1))
	require.NoError(t, t2.Commit())
	require.NoError(t, t2.Close())

	require.Equal(t, []hit{{"alpha", 2}, {"beta", 3}},
		scan(t, s, value.String("a"), value.String("c")))
}

func Test_Store_ScanStopsOnCallbackError(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, s.IndexValue(txn, value.Boolean(i%2 == 0), uint64(i)))
	}
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	stop := errors.New("stop")
	var n int
	err = s.ScanValues(value.Boolean(false), value.Boolean(true), func(value.Value, uint64) error {
		n++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, n)
}

func Test_Store_DateTimeIndexNormalizesZone(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2024, 3, 1, 7, 0, 0, 0, est)

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.IndexValue(txn, value.DateTime(local), 1))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var got []time.Time
	require.NoError(t, s.ScanValues(value.DateTime(utc), value.DateTime(utc), func(v value.Value, _ uint64) error {
		got = append(got, v.Time())
		return nil
	}))
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(utc))
}

func Test_Store_WithDelegate(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()
	ctx := context.Background()

	t.Run("success leaves commit to the owner", func(t *testing.T) {
		owner, err := s.Begin(ctx)
		require.NoError(t, err)
		defer owner.Close()

		err = s.WithDelegate(owner, func(h tx.Txn) error {
			return s.PutNode(h, 100, node.Element(types.QName{Local: "chapter"}))
		})
		require.NoError(t, err)
		require.Equal(t, tx.StateStarted, owner.State())

		require.NoError(t, owner.Commit())
		_, err = s.GetNode(100)
		require.NoError(t, err)
	})

	t.Run("failure aborts and closes the shared transaction", func(t *testing.T) {
		owner, err := s.Begin(ctx)
		require.NoError(t, err)
		defer owner.Close()

		boom := errors.New("boom")
		err = s.WithDelegate(owner, func(h tx.Txn) error {
			require.NoError(t, s.PutNode(h, 200, node.Element(types.QName{Local: "lost"})))
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, tx.StateClosed, owner.State(), "closing an uncommitted handle closes the owner")

		_, err = s.GetNode(200)
		require.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("delegate handle cannot commit", func(t *testing.T) {
		owner, err := s.Begin(ctx)
		require.NoError(t, err)
		defer owner.Close()

		h := s.Delegate(owner)
		require.NoError(t, s.PutNode(h, 300, node.Element(types.QName{Local: "x"})))
		require.NoError(t, h.Commit())
		require.NoError(t, h.Close())

		_, err = s.GetNode(300)
		require.ErrorIs(t, err, types.ErrNotFound)
		require.Equal(t, tx.StateStarted, owner.State())
		require.NoError(t, owner.Commit())
		_, err = s.GetNode(300)
		require.NoError(t, err)
	})
}

func Test_Store_CloseAbortsOpenTransactions(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, Options{})

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 1, node.Element(types.QName{Local: "a"})))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")
	require.Equal(t, tx.StateClosed, txn.State())

	_, err = s.Begin(context.Background())
	require.ErrorIs(t, err, types.ErrClosed)
	_, err = s.GetNode(1)
	require.ErrorIs(t, err, types.ErrClosed)
	require.ErrorIs(t, s.PutNode(txn, 1, node.Element(types.QName{Local: "a"})), types.ErrClosed)

	s2 := openStore(t, dir, Options{})
	defer s2.Close()
	_, err = s2.GetNode(1)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func Test_Store_SymbolsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, Options{})

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 1, node.Element(types.QName{Local: "title", Namespace: "urn:a"})))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())
	names, namespaces := s.Symbols().Len()
	require.NoError(t, s.Close())

	s2 := openStore(t, dir, Options{})
	defer s2.Close()
	gotNames, gotNamespaces := s2.Symbols().Len()
	require.Equal(t, names, gotNames)
	require.Equal(t, namespaces, gotNamespaces)

	n, err := s2.GetNode(1)
	require.NoError(t, err)
	require.Equal(t, "urn:a", n.Name.Namespace)
}

func Test_Store_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, Options{})
	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 1, node.Element(types.QName{Local: "a"})))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())
	require.NoError(t, s.Close())

	ro := openStore(t, dir, Options{ReadOnly: true})
	defer ro.Close()
	_, err = ro.GetNode(1)
	require.NoError(t, err)
	_, err = ro.Begin(context.Background())
	require.ErrorIs(t, err, types.ErrState)
}

func Test_Store_Logs(t *testing.T) {
	var out bytes.Buffer
	log, _, err := logger.New(logger.Options{Enabled: true, Writer: &out})
	require.NoError(t, err)

	s := openStore(t, t.TempDir(), Options{Logger: log})
	require.NoError(t, s.Close())
	require.Contains(t, out.String(), "component=store")
	require.Contains(t, out.String(), "msg=opened")
	require.Contains(t, out.String(), "msg=closed")
}

func Test_Store_NodesAndEntries(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.PutNode(txn, 300, node.Element(types.QName{Local: "c"})))
	require.NoError(t, s.PutNode(txn, 2, node.Element(types.QName{Local: "a"})))
	require.NoError(t, s.PutNode(txn, 17, node.Attr(types.QName{Local: "b"}, "x")))
	require.NoError(t, s.IndexValue(txn, value.Integer(5), 2))
	require.NoError(t, s.IndexValue(txn, value.String("x"), 17))
	require.NoError(t, s.IndexValue(txn, value.Boolean(true), 300))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	var ids []uint64
	var names []string
	require.NoError(t, s.Nodes(func(id uint64, n node.Node) error {
		ids = append(ids, id)
		names = append(names, n.Name.Local)
		return nil
	}))
	require.Equal(t, []uint64{2, 17, 300}, ids)
	require.Equal(t, []string{"a", "b", "c"}, names)

	var kinds []value.Type
	require.NoError(t, s.Entries(func(v value.Value, _ uint64) error {
		kinds = append(kinds, v.Type())
		return nil
	}))
	require.Equal(t, []value.Type{value.TypeString, value.TypeInteger, value.TypeBoolean}, kinds,
		"entries follow tag order")
}

func Test_Store_ScanStringsIgnoresNodeIDBytes(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	// 0x63 is 'b': without a terminator "a"@high would sort after "ab"@1.
	const high = 0x6300000000000000

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.IndexValue(txn, value.String("a"), high))
	require.NoError(t, s.IndexValue(txn, value.String("ab"), 1))
	require.NoError(t, s.IndexValue(txn, value.String("a\x00"), 2))
	require.NoError(t, s.IndexValue(txn, value.String(""), 3))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	require.Equal(t, []hit{{"a", high}, {"a\x00", 2}, {"ab", 1}},
		scan(t, s, value.String("a"), value.String("ab")))
	require.Equal(t, []hit{{"a", high}},
		scan(t, s, value.String("a"), value.String("a")))
	require.Equal(t, []hit{{"", 3}},
		scan(t, s, value.String(""), value.String("")))

	var all []hit
	require.NoError(t, s.Entries(func(v value.Value, id uint64) error {
		all = append(all, hit{v.String(), id})
		return nil
	}))
	require.Equal(t, []hit{{"", 3}, {"a", high}, {"a\x00", 2}, {"ab", 1}}, all)
}

func Test_Store_SignedZeroDoublesShareIndexEntries(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()

	txn, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.IndexValue(txn, value.Double(math.Copysign(0, -1)), 1))
	require.NoError(t, s.IndexValue(txn, value.Double(0.5), 2))
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Close())

	require.Equal(t, []hit{{"0", 1}, {"0.5", 2}},
		scan(t, s, value.Double(0), value.Double(1)))
}

func Test_SplitIndexKey_Malformed(t *testing.T) {
	for _, key := range [][]byte{
		{0x01},
		{0x01, 'a', 0, 0, 0, 0, 0, 0, 0, 0},
		{0x01, 'a', 0x00, 0x07, 0, 0, 0, 0, 0, 0, 0, 0},
		{0x01, 'a', 0x00, 0x00, 1, 2, 3},
		{0x04, 0x80},
	} {
		_, _, err := splitIndexKey(key)
		require.ErrorIs(t, err, types.ErrCorrupt, "%x", key)
	}
}
