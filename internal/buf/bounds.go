package buf

import (
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}

// Cursor walks a record front to back with bounds-checked big-endian reads.
// Every read either succeeds completely or leaves the cursor where it was,
// so a decoder can report how far it got without having consumed garbage.
type Cursor struct {
	data []byte
	off  int
}

// NewCursor positions a cursor at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.off }

// Next returns the next n bytes without copying.
func (c *Cursor) Next(n int) ([]byte, bool) {
	b, ok := Slice(c.data, c.off, n)
	if !ok {
		return nil, false
	}
	c.off += n
	return b, true
}

// Rest returns every unread byte and moves to the end.
func (c *Cursor) Rest() []byte {
	b := c.data[c.off:]
	c.off = len(c.data)
	return b
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, bool) {
	b, ok := c.Next(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// U16 reads a big-endian uint16.
func (c *Cursor) U16() (uint16, bool) {
	b, ok := c.Next(2)
	if !ok {
		return 0, false
	}
	return U16BE(b), true
}

// U32 reads a big-endian uint32.
func (c *Cursor) U32() (uint32, bool) {
	b, ok := c.Next(4)
	if !ok {
		return 0, false
	}
	return U32BE(b), true
}

// U64 reads a big-endian uint64.
func (c *Cursor) U64() (uint64, bool) {
	b, ok := c.Next(8)
	if !ok {
		return 0, false
	}
	return U64BE(b), true
}

// Uint reads an unsigned big-endian integer of width 1, 2 or 4 bytes.
func (c *Cursor) Uint(width int) (uint32, bool) {
	switch width {
	case 1:
		v, ok := c.U8()
		return uint32(v), ok
	case 2:
		v, ok := c.U16()
		return uint32(v), ok
	case 4:
		return c.U32()
	default:
		return 0, false
	}
}
