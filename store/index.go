package store

import (
	"fmt"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/internal/format"
	"github.com/joshuapare/xmlstore/pkg/types"
	"github.com/joshuapare/xmlstore/store/value"
)

// Index entry layout:
//
//	value key  node id (8 bytes BE)
//
// Fixed-width value keys are used as is. A string payload is escaped and
// terminated so that no string key is a prefix of another and the node id
// can never take part in ordering two different strings:
//
//	0x00 in the payload  ->  0x00 0xFF
//	end of payload       ->  0x00 0x00
const (
	strEscape  byte = 0x00
	strEscaped byte = 0xFF
	strEnd     byte = 0x00
)

// valuePrefix returns the leading part of every index key for v.
func (s *Store) valuePrefix(v value.Value) ([]byte, error) {
	enc, err := value.EncodeWith(v, s.keyOpts)
	if err != nil {
		return nil, err
	}
	if enc[0] != format.TagString {
		return enc, nil
	}
	out := make([]byte, 0, len(enc)+2)
	out = append(out, enc[0])
	for _, c := range enc[format.TagSize:] {
		if c == strEscape {
			out = append(out, strEscape, strEscaped)
			continue
		}
		out = append(out, c)
	}
	return append(out, strEscape, strEnd), nil
}

func (s *Store) indexKey(v value.Value, nodeID uint64) ([]byte, error) {
	key, err := s.valuePrefix(v)
	if err != nil {
		return nil, err
	}
	return buf.AppendU64(key, nodeID), nil
}

func splitIndexKey(key []byte) (value.Value, uint64, error) {
	if len(key) < nodeIDSize+format.TagSize {
		return value.Value{}, 0, types.Corruptf("store: index key %x too short", key)
	}
	enc, rest := key[:len(key)-nodeIDSize], key[len(key)-nodeIDSize:]
	if key[0] == format.TagString {
		var ok bool
		enc, rest, ok = unescapeString(key)
		if !ok || len(rest) != nodeIDSize {
			return value.Value{}, 0, types.Corruptf("store: string index key %x is malformed", key)
		}
	}
	v, err := value.Decode(enc)
	if err != nil {
		return value.Value{}, 0, fmt.Errorf("store: index key %x: %w", key, err)
	}
	return v, buf.U64BE(rest), nil
}

// unescapeString splits an escaped string key into its plain value key and
// whatever follows the terminator.
func unescapeString(key []byte) (enc, rest []byte, ok bool) {
	enc = append(make([]byte, 0, len(key)), key[0])
	for i := format.TagSize; i < len(key); i++ {
		c := key[i]
		if c != strEscape {
			enc = append(enc, c)
			continue
		}
		if i+1 >= len(key) {
			return nil, nil, false
		}
		switch key[i+1] {
		case strEscaped:
			enc = append(enc, strEscape)
			i++
		case strEnd:
			return enc, key[i+2:], true
		default:
			return nil, nil, false
		}
	}
	return nil, nil, false
}
