// Package bob implements the handle layer of a BOB ("binary object
// file") container: a single-object, append-friendly file format that
// is gentle on flash storage. It stores one contiguous logical blob,
// persisted as a log of records whose physical layout is aligned to
// the underlying filesystem's block size. Small updates append new
// records; periodic full rewrites ("cues") bound read latency and let
// the library punch a hole over the file's now-dead prefix.
//
// A BOB value is not safe for concurrent use, and at most one handle
// may be open on a given file at a time -- the caller is responsible
// for that exclusivity, the same way a caller of os.OpenFile is
// responsible for not corrupting a file two goroutines write to at
// once.
package bob

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/TheCount/bob/internal/container"
)

// BOB is a handle to one open container. The zero value is not valid;
// obtain one from Create or Open.
type BOB struct {
	c      *container.Container
	data   []byte // most recently committed encoded record, or replayed bytes
	offset int    // data[offset:] is the user-visible payload
	closed bool
}

// Create creates a new BOB file at path. cfg may be nil, equivalent to
// DefaultConfig(). It fails with ErrExists if path already exists.
func Create(cfg *Config, path string) (*BOB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c, err := container.Create(path, cfg.blockSize, cfg.cueSize)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, err
	}
	return &BOB{c: c}, nil
}

// Open opens an existing BOB file at path, replaying its records to
// recover the current bytes.
func Open(path string) (*BOB, error) {
	c, data, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	b := &BOB{c: c}
	if data != nil {
		// A written-but-empty object replays to a non-nil, zero-length
		// slice (record.go's replay always allocates one for a seen
		// REWRITE); only an object that has never been written to
		// replays to nil. The distinction matters: Current must not
		// collapse "written empty" into "never written".
		b.data = data
		b.offset = 0
	}
	return b, nil
}

// Set replaces the object's contents with payload. On success, the
// slice returned by Current is invalidated; callers must fetch a new
// one. On failure the previously visible bytes remain intact -- b's
// in-memory view is never swapped before the write and commit both
// succeed.
func (b *BOB) Set(payload []byte) error {
	if b.closed {
		return ErrClosed
	}
	encoded, err := b.c.WriteRewrite(payload)
	if err != nil {
		return err
	}
	// The encoded record is [blockId varint][length varint][payload];
	// the payload always occupies its tail, so the offset where the
	// user-visible bytes begin falls out of the lengths alone -- the
	// handle never needs to know the varint encoding itself.
	b.data = encoded
	b.offset = len(encoded) - len(payload)
	return nil
}

// Current returns a view of the object's current bytes. The returned
// slice aliases memory owned by b and is invalidated by the next call
// to Set or Close. A freshly opened file with no records yet returns
// (nil, 0), not an error.
func (b *BOB) Current() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[b.offset:]
}

// Flush commits any buffered write and forces it to stable storage.
func (b *BOB) Flush() error {
	if b.closed {
		return ErrClosed
	}
	return b.c.Flush()
}

// Close commits the write buffer, fsyncs, and releases the handle.
// Every step is attempted even if an earlier one failed; the first
// error encountered is returned. Close always marks the handle closed,
// whether or not a step failed; any later call returns ErrClosed.
func (b *BOB) Close() error {
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return b.c.Close()
}

// Stat describes the resolved, persisted configuration of an open
// file, plus the absolute offset of its live segment. It is not part
// of the on-disk format's mutation surface -- it only exposes state
// the container already tracks, for tooling and tests that need to
// assert the block-alignment invariant without reopening the file.
type Stat struct {
	BlockSize    uint64
	CueSize      uint64
	SegmentStart int64
}

// Stat returns the resolved configuration and live-segment offset for
// an open handle.
func (b *BOB) Stat() (Stat, error) {
	if b.closed {
		return Stat{}, ErrClosed
	}
	return Stat{
		BlockSize:    b.c.BlockSize(),
		CueSize:      b.c.CueSize(),
		SegmentStart: b.c.SegmentStart(),
	}, nil
}
