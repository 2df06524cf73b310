package journal

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"slices"

	"github.com/joshuapare/xmlstore/internal/buf"
)

// Batch is the ordered PUT/DELETE records of one committed transaction.
type Batch struct {
	TxID uint64
	Ops  []Record
}

// ReplayResult summarizes a journal scan.
type ReplayResult struct {
	// Committed holds batches committed after the last checkpoint, in commit
	// order.
	Committed []Batch
	// Incomplete holds ids of transactions that began or wrote records but
	// never committed or aborted, in ascending order.
	Incomplete []uint64
	// Records is the number of intact records read.
	Records int
	// TornTail is set when the scan stopped at a short or corrupt final
	// record.
	TornTail bool
	// ValidBytes is the length of the intact prefix of the file.
	ValidBytes int64
}

// Replay scans the journal at path. A missing file is an empty journal.
func Replay(path string) (*ReplayResult, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ReplayResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()
	return replayFrom(f)
}

func replayFrom(r io.Reader) (*ReplayResult, error) {
	res := &ReplayResult{}
	open := map[uint64][]Record{}
	br := bufio.NewReader(r)
	hdr := make([]byte, frameHeaderSize)

	for {
		if _, err := io.ReadFull(br, hdr); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				res.TornTail = true
			} else if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("journal: read: %w", err)
			}
			break
		}
		n := buf.U32BE(hdr)
		sum := buf.U32BE(hdr[4:])
		if n < bodyHeaderSize || n > maxBodySize {
			res.TornTail = true
			break
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(br, body); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				res.TornTail = true
				break
			}
			return nil, fmt.Errorf("journal: read: %w", err)
		}
		if crc32.Checksum(body, castagnoli) != sum {
			res.TornTail = true
			break
		}

		rec, err := decodeBody(body)
		if err != nil {
			return nil, fmt.Errorf("journal: record %d at offset %d: %w", res.Records, res.ValidBytes, err)
		}
		res.Records++
		res.ValidBytes += int64(frameHeaderSize) + int64(n)

		switch rec.Kind {
		case KindBegin:
			if _, ok := open[rec.TxID]; !ok {
				open[rec.TxID] = nil
			}
		case KindPut, KindDelete:
			open[rec.TxID] = append(open[rec.TxID], rec)
		case KindCommit:
			res.Committed = append(res.Committed, Batch{TxID: rec.TxID, Ops: open[rec.TxID]})
			delete(open, rec.TxID)
		case KindAbort:
			// An abort after a commit means the commit never reached the
			// pages and was rolled back.
			delete(open, rec.TxID)
			res.Committed = slices.DeleteFunc(res.Committed, func(b Batch) bool { return b.TxID == rec.TxID })
		case KindCheckpoint:
			res.Committed = nil
		}
	}

	for id := range open {
		res.Incomplete = append(res.Incomplete, id)
	}
	slices.Sort(res.Incomplete)
	return res, nil
}
