package journal

import (
	"hash/crc32"
	"strconv"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/pkg/types"
)

// Record frame layout:
//
//	Offset  Size  Field
//	0x00    4     Body length (kind + txid + payload)
//	0x04    4     CRC-32C of the body
//	0x08    1     Kind
//	0x09    8     Transaction id
//	0x11    n     Payload
//
// PUT payload:    [bucket_len:1][bucket][key_len:4][key][value]
// DELETE payload: [bucket_len:1][bucket][key]
// Other kinds carry no payload.
const (
	frameHeaderSize = 8
	bodyHeaderSize  = 1 + 8
	maxBucketName   = 0xFF

	// maxBodySize bounds a single record so a corrupt length cannot make
	// replay allocate without limit.
	maxBodySize = 64 << 20
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Kind is the record type.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindPut
	KindDelete
	KindCommit
	KindAbort
	KindCheckpoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "BEGIN"
	case KindPut:
		return "PUT"
	case KindDelete:
		return "DELETE"
	case KindCommit:
		return "COMMIT"
	case KindAbort:
		return "ABORT"
	case KindCheckpoint:
		return "CHECKPOINT"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Record is one journal entry. Bucket, Key and Value are used by PUT and
// DELETE only.
type Record struct {
	Kind   Kind
	TxID   uint64
	Bucket string
	Key    []byte
	Value  []byte
}

// appendFrame appends the framed encoding of r to dst.
func appendFrame(dst []byte, r Record) ([]byte, error) {
	if r.Kind < KindBegin || r.Kind > KindCheckpoint {
		return dst, types.Encodingf("journal: %w", types.Unsupportedf("record kind %s", r.Kind))
	}
	if len(r.Bucket) > maxBucketName {
		return dst, types.Encodingf("journal: bucket name is %d bytes, max %d", len(r.Bucket), maxBucketName)
	}

	start := len(dst)
	dst = append(dst, make([]byte, frameHeaderSize)...)
	dst = append(dst, byte(r.Kind))
	dst = buf.AppendU64(dst, r.TxID)
	switch r.Kind {
	case KindPut:
		dst = append(dst, byte(len(r.Bucket)))
		dst = append(dst, r.Bucket...)
		dst = buf.AppendU32(dst, uint32(len(r.Key)))
		dst = append(dst, r.Key...)
		dst = append(dst, r.Value...)
	case KindDelete:
		dst = append(dst, byte(len(r.Bucket)))
		dst = append(dst, r.Bucket...)
		dst = append(dst, r.Key...)
	}

	body := dst[start+frameHeaderSize:]
	if len(body) > maxBodySize {
		return dst[:start], types.Encodingf("journal: record body is %d bytes, max %d", len(body), maxBodySize)
	}
	buf.PutU32BE(dst[start:], uint32(len(body)))
	buf.PutU32BE(dst[start+4:], crc32.Checksum(body, castagnoli))
	return dst, nil
}

// decodeBody parses a CRC-verified body.
func decodeBody(body []byte) (Record, error) {
	c := buf.NewCursor(body)
	k, ok := c.U8()
	if !ok {
		return Record{}, types.Corruptf("journal: empty record body")
	}
	txid, ok := c.U64()
	if !ok {
		return Record{}, types.Corruptf("journal: truncated transaction id")
	}
	r := Record{Kind: Kind(k), TxID: txid}

	switch r.Kind {
	case KindBegin, KindCommit, KindAbort, KindCheckpoint:
		if c.Remaining() != 0 {
			return Record{}, types.Corruptf("journal: %s record with %d payload bytes", r.Kind, c.Remaining())
		}
	case KindPut, KindDelete:
		blen, ok := c.U8()
		if !ok {
			return Record{}, types.Corruptf("journal: truncated bucket length")
		}
		bucket, ok := c.Next(int(blen))
		if !ok {
			return Record{}, types.Corruptf("journal: truncated bucket name")
		}
		r.Bucket = string(bucket)
		if r.Kind == KindDelete {
			r.Key = clone(c.Rest())
			break
		}
		klen, ok := c.U32()
		if !ok {
			return Record{}, types.Corruptf("journal: truncated key length")
		}
		key, ok := c.Next(int(klen))
		if !ok {
			return Record{}, types.Corruptf("journal: key length %d exceeds record", klen)
		}
		r.Key = clone(key)
		r.Value = clone(c.Rest())
	default:
		return Record{}, types.Unsupportedf("journal: unknown record kind %d", k)
	}
	return r, nil
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
