package node

import (
	"unicode/utf8"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/internal/format"
	"github.com/joshuapare/xmlstore/pkg/types"
)

// Encode serializes n into a node record, resolving names through symbols.
// On error nothing is returned.
func Encode(n Node, symbols types.SymbolTable) ([]byte, error) {
	if n.Kind > maxKnownKind {
		return nil, types.Encodingf("node: %w", types.Unsupportedf("kind %s", n.Kind))
	}
	if n.Subtype > SubtypeID {
		return nil, types.Encodingf("node: subtype %d does not fit one bit", n.Subtype)
	}
	if n.Name.Local == "" {
		return nil, types.Encodingf("node: %s without a local name", n.Kind)
	}
	if n.Name.Prefix != "" && !n.Name.HasNamespace() {
		return nil, types.Encodingf("node: prefix %q without a namespace", n.Name.Prefix)
	}
	if !utf8.ValidString(n.Value) {
		return nil, types.Encodingf("node: value of %s is not valid UTF-8", n.Name)
	}

	id, err := symbols.IDFor(n.Name)
	if err != nil {
		return nil, types.Wrap(types.ErrKindEncoding, "node: name id for "+n.Name.String(), err)
	}
	width := symbols.WidthClassFor(id)
	code := format.CodeForWidth(int(width))
	if code == format.WidthCodeInvalid || !width.Fits(id) {
		return nil, types.Encodingf("node: name id %d does not fit width class %d", id, width)
	}

	sig := format.Signature{
		Kind:         uint8(n.Kind),
		WidthCode:    code,
		Subtype:      uint8(n.Subtype),
		HasNamespace: n.Name.HasNamespace(),
	}

	size := format.SignatureSize + int(width) + len(n.Value)
	var nsID uint16
	if sig.HasNamespace {
		if len(n.Name.Prefix) > format.MaxPrefixLength {
			return nil, types.Encodingf("node: prefix is %d bytes, max %d", len(n.Name.Prefix), format.MaxPrefixLength)
		}
		if !utf8.ValidString(n.Name.Prefix) {
			return nil, types.Encodingf("node: prefix is not valid UTF-8")
		}
		nsID, err = symbols.NamespaceIDFor(n.Name.Namespace)
		if err != nil {
			return nil, types.Wrap(types.ErrKindEncoding, "node: namespace id for "+n.Name.Namespace, err)
		}
		if nsID == 0 {
			return nil, types.Encodingf("node: symbol table returned namespace id 0 for %q", n.Name.Namespace)
		}
		size += format.NamespaceHdrSize + len(n.Name.Prefix)
	}

	out := make([]byte, 0, size)
	out = append(out, sig.Pack())
	out = buf.AppendUint(out, id, int(width))
	if sig.HasNamespace {
		out = buf.AppendU16(out, nsID)
		out = buf.AppendU16(out, uint16(len(n.Name.Prefix)))
		out = append(out, n.Name.Prefix...)
	}
	return append(out, n.Value...), nil
}

// Decode parses a node record, resolving ids through symbols. It never
// allocates symbols.
func Decode(data []byte, symbols types.SymbolTable) (Node, error) {
	c := buf.NewCursor(data)
	b, ok := c.U8()
	if !ok {
		return Node{}, types.Corruptf("node: empty record")
	}
	sig := format.UnpackSignature(b)
	if Kind(sig.Kind) > maxKnownKind {
		return Node{}, types.Unsupportedf("node: unknown kind tag %d", sig.Kind)
	}
	width := sig.IDWidth()
	if width == 0 {
		return Node{}, types.Corruptf("node: signature 0x%02x has invalid width class", b)
	}

	id, ok := c.Uint(width)
	if !ok {
		return Node{}, types.Corruptf("node: truncated name id (need %d bytes, have %d)", width, c.Remaining())
	}
	name, ok := symbols.QNameFor(id)
	if !ok {
		return Node{}, types.Corruptf("node: unknown name id %d", id)
	}
	n := Node{
		Kind:    Kind(sig.Kind),
		Subtype: Subtype(sig.Subtype),
		Name:    types.QName{Local: name.Local},
	}

	if sig.HasNamespace {
		nsID, ok := c.U16()
		if !ok {
			return Node{}, types.Corruptf("node: truncated namespace id")
		}
		if nsID == 0 {
			return Node{}, types.Corruptf("node: namespace flag set with namespace id 0")
		}
		uri, ok := symbols.NamespaceURIFor(nsID)
		if !ok {
			return Node{}, types.Corruptf("node: unknown namespace id %d", nsID)
		}
		plen, ok := c.U16()
		if !ok {
			return Node{}, types.Corruptf("node: truncated prefix length")
		}
		prefix, ok := c.Next(int(plen))
		if !ok {
			return Node{}, types.Corruptf("node: prefix length %d exceeds remaining %d bytes", plen, c.Remaining())
		}
		if !utf8.Valid(prefix) {
			return Node{}, types.Corruptf("node: prefix is not valid UTF-8")
		}
		n.Name.Namespace = uri
		n.Name.Prefix = string(prefix)
	}

	value := c.Rest()
	if !utf8.Valid(value) {
		return Node{}, types.Corruptf("node: value is not valid UTF-8")
	}
	n.Value = string(value)
	return n, nil
}

// PeekKind returns the kind of an encoded record without resolving names.
func PeekKind(data []byte) (Kind, error) {
	if len(data) < format.SignatureSize {
		return 0, types.Corruptf("node: empty record")
	}
	k := Kind(format.UnpackSignature(data[0]).Kind)
	if k > maxKnownKind {
		return 0, types.Unsupportedf("node: unknown kind tag %d", k)
	}
	return k, nil
}
