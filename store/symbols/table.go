// Package symbols interns XML local names and namespace URIs into the small
// integer ids that node records carry.
//
// Lookups are lock-free: both directions live in concurrent skip lists.
// Allocation of a new id is serialized by a mutex so ids are dense and
// strictly increasing from 1. Id 0 is never handed out; for namespaces it
// means "no namespace".
//
// A Table can be backed by a Persister. Every newly allocated id is saved
// before it becomes visible; LoadName and LoadNamespace replay saved entries
// when a store is reopened.
package symbols

import (
	"fmt"
	"math"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"github.com/joshuapare/xmlstore/pkg/types"
)

// Persister receives every newly allocated id.
type Persister interface {
	SaveName(id uint32, local string) error
	SaveNamespace(id uint16, uri string) error
}

// Options configures a Table.
type Options struct {
	// Persister, when set, is called under the allocation lock for every new
	// id. A failing save leaves the table unchanged.
	Persister Persister
}

// Table is the reference types.SymbolTable.
type Table struct {
	mu sync.Mutex // serializes allocation

	nameIDs  *skipmap.FuncMap[string, uint32]
	names    *skipmap.FuncMap[uint32, string]
	nsIDs    *skipmap.FuncMap[string, uint16]
	nsURIs   *skipmap.FuncMap[uint16, string]
	nextName uint32
	nextNS   uint32 // wider than uint16 so overflow is detectable

	persist Persister
}

var _ types.SymbolTable = (*Table)(nil)

// New returns an empty table.
func New(opts Options) *Table {
	return &Table{
		nameIDs:  skipmap.NewFunc[string, uint32](func(a, b string) bool { return a < b }),
		names:    skipmap.NewFunc[uint32, string](func(a, b uint32) bool { return a < b }),
		nsIDs:    skipmap.NewFunc[string, uint16](func(a, b string) bool { return a < b }),
		nsURIs:   skipmap.NewFunc[uint16, string](func(a, b uint16) bool { return a < b }),
		nextName: 1,
		nextNS:   1,
		persist:  opts.Persister,
	}
}

// IDFor returns the id of name.Local, allocating one on first use. The
// namespace and prefix are not part of the id.
func (t *Table) IDFor(name types.QName) (uint32, error) {
	local := name.Local
	if local == "" {
		return 0, types.Encodingf("symbols: empty local name")
	}
	if id, ok := t.nameIDs.Load(local); ok {
		return id, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.nameIDs.Load(local); ok {
		return id, nil
	}
	if t.nextName == math.MaxUint32 {
		return 0, types.Encodingf("symbols: name id space exhausted")
	}
	id := t.nextName
	if t.persist != nil {
		if err := t.persist.SaveName(id, local); err != nil {
			return 0, types.Wrap(types.ErrKindEncoding, "symbols: save name "+local, err)
		}
	}
	t.publishName(id, local)
	return id, nil
}

// QNameFor resolves a name id. Only Local is set on the result.
func (t *Table) QNameFor(id uint32) (types.QName, bool) {
	local, ok := t.names.Load(id)
	if !ok {
		return types.QName{}, false
	}
	return types.QName{Local: local}, true
}

// NamespaceIDFor returns the id of uri, allocating one on first use.
func (t *Table) NamespaceIDFor(uri string) (uint16, error) {
	if uri == "" {
		return 0, types.Encodingf("symbols: empty namespace URI")
	}
	if id, ok := t.nsIDs.Load(uri); ok {
		return id, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.nsIDs.Load(uri); ok {
		return id, nil
	}
	if t.nextNS > math.MaxUint16 {
		return 0, types.Encodingf("symbols: namespace id space exhausted")
	}
	id := uint16(t.nextNS)
	if t.persist != nil {
		if err := t.persist.SaveNamespace(id, uri); err != nil {
			return 0, types.Wrap(types.ErrKindEncoding, "symbols: save namespace "+uri, err)
		}
	}
	t.publishNamespace(id, uri)
	return id, nil
}

// NamespaceURIFor resolves a namespace id. Id 0 never resolves.
func (t *Table) NamespaceURIFor(id uint16) (string, bool) {
	return t.nsURIs.Load(id)
}

// WidthClassFor returns the narrowest on-disk width for id.
func (t *Table) WidthClassFor(id uint32) types.WidthClass {
	return types.WidthFor(id)
}

// LoadName installs a persisted name without calling the Persister.
// Re-loading an identical entry is a no-op; a conflicting one is corrupt.
func (t *Table) LoadName(id uint32, local string) error {
	if id == 0 || local == "" {
		return types.Corruptf("symbols: invalid name entry %d=%q", id, local)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.names.Load(id); ok {
		if prev == local {
			return nil
		}
		return types.Corruptf("symbols: name id %d is both %q and %q", id, prev, local)
	}
	if prev, ok := t.nameIDs.Load(local); ok {
		return types.Corruptf("symbols: name %q has ids %d and %d", local, prev, id)
	}
	t.publishName(id, local)
	return nil
}

// LoadNamespace installs a persisted namespace without calling the Persister.
func (t *Table) LoadNamespace(id uint16, uri string) error {
	if id == 0 || uri == "" {
		return types.Corruptf("symbols: invalid namespace entry %d=%q", id, uri)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.nsURIs.Load(id); ok {
		if prev == uri {
			return nil
		}
		return types.Corruptf("symbols: namespace id %d is both %q and %q", id, prev, uri)
	}
	if prev, ok := t.nsIDs.Load(uri); ok {
		return types.Corruptf("symbols: namespace %q has ids %d and %d", uri, prev, id)
	}
	t.publishNamespace(id, uri)
	return nil
}

// Len returns the number of interned names and namespaces.
func (t *Table) Len() (names, namespaces int) {
	return t.names.Len(), t.nsURIs.Len()
}

// RangeNames calls fn for every name in id order until fn returns false.
func (t *Table) RangeNames(fn func(id uint32, local string) bool) {
	t.names.Range(fn)
}

// RangeNamespaces calls fn for every namespace in id order until fn returns false.
func (t *Table) RangeNamespaces(fn func(id uint16, uri string) bool) {
	t.nsURIs.Range(fn)
}

// LookupName returns the id of local without allocating.
func (t *Table) LookupName(local string) (uint32, bool) {
	return t.nameIDs.Load(local)
}

// String summarizes the table for logs.
func (t *Table) String() string {
	n, ns := t.Len()
	return fmt.Sprintf("symbols{names=%d namespaces=%d}", n, ns)
}

// publishName must be called with mu held. The reverse map is written first
// so that any id observed through nameIDs resolves.
func (t *Table) publishName(id uint32, local string) {
	t.names.Store(id, local)
	t.nameIDs.Store(local, id)
	switch {
	case id == math.MaxUint32:
		t.nextName = math.MaxUint32
	case id >= t.nextName:
		t.nextName = id + 1
	}
}

func (t *Table) publishNamespace(id uint16, uri string) {
	t.nsURIs.Store(id, uri)
	t.nsIDs.Store(uri, id)
	if uint32(id) >= t.nextNS {
		t.nextNS = uint32(id) + 1
	}
}
