package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/joshuapare/xmlstore/pkg/types"
	"github.com/joshuapare/xmlstore/store"
	"github.com/joshuapare/xmlstore/store/journal"
	"github.com/joshuapare/xmlstore/store/node"
	"github.com/joshuapare/xmlstore/store/value"
)

// seedStore creates a store with a few nodes and index entries and returns
// its directory plus the hex record of the "year" attribute.
func seedStore(t *testing.T) (dir, yearHex string) {
	t.Helper()
	dir = t.TempDir()

	s, err := store.Open(dir, store.Options{Sync: journal.SyncNone})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	year := node.Attr(types.QName{Local: "year", Namespace: "urn:books", Prefix: "b"}, "1960")
	nodes := map[uint64]node.Node{
		1: node.Element(types.QName{Local: "book"}),
		2: year,
		3: node.IDAttr(types.QName{Local: "isbn"}, "0-06-112008-1"),
	}

	txn, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	for id, n := range nodes {
		if err := s.PutNode(txn, id, n); err != nil {
			t.Fatalf("failed to put node %d: %v", id, err)
		}
	}
	if err := s.IndexValue(txn, value.Integer(1960), 2); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if err := s.IndexValue(txn, value.String("0-06-112008-1"), 3); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	txn.Close()

	rec, err := node.Encode(year, s.Symbols())
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return dir, hex.EncodeToString(rec)
}

// resetFlags restores global flags between test cases
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	keyFold = false
	dumpNodes = false
	dumpValues = false
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot block the writer.
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
