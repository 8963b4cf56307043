// Package container implements the container format's on-disk engine:
// the buffered block-aligned file, the header and record codecs, the
// cue/rewrite policy, and the parse/replay loop that reconstructs an
// object's current bytes on open. It is the engine layer -- it knows
// nothing about the public handle API, only a resolved configuration
// and a filesystem path in, and a replayed byte slice plus a
// record-writing operation out.
package container

import (
	"fmt"
	"os"

	"github.com/TheCount/bob/internal/sysio"
)

// Container owns the file descriptor, scratch buffer, and cue policy
// for exactly one BOB file. It is not safe for concurrent use: the
// caller is the sole owner of one Container at a time.
type Container struct {
	fd           int
	bf           *bufferedFile
	cue          *cueManager
	blockSize    uint64
	cueSize      uint64
	segmentStart int64 // absolute offset of the live segment's header
}

// Create creates a brand-new BOB file at path, failing if it already
// exists.
func Create(path string, blockSize, cueSize uint64) (c *Container, err error) {
	fd, err := sysio.Open(path, os.O_RDWR|os.O_CREAT|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = sysio.Close(fd)
			_ = sysio.Unlink(path)
		}
	}()

	probed, _ := sysio.BlockSizeHint(fd)
	blockSize, cueSize = resolveConfig(blockSize, cueSize, probed)

	if err = sysio.PreallocateNext(fd, int64(blockSize)); err != nil {
		return nil, err
	}

	bf := newBufferedFile(fd, int(blockSize))
	if err = writeHeader(bf, true, blockSize, cueSize); err != nil {
		return nil, err
	}

	c = &Container{
		fd:        fd,
		bf:        bf,
		cue:       newCueManager(fd, cueSize),
		blockSize: blockSize,
		cueSize:   cueSize,
	}
	return c, nil
}

// Open opens an existing BOB file, skips any punched-hole prefix,
// parses its header, and replays its records, returning the
// reconstructed current bytes. It leaves the Container positioned for
// append.
func Open(path string) (c *Container, data []byte, err error) {
	fd, err := sysio.Open(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = sysio.Close(fd)
		}
	}()

	segmentStart, err := sysio.SeekData(fd, 0)
	if err != nil {
		return nil, nil, err
	}

	bf := newBufferedFile(fd, DefaultBlockSize)
	bf.mode = modeReading
	if segmentStart == 0 {
		var m [4]byte
		if _, err = bf.Read(m[:]); err != nil {
			return nil, nil, err
		}
		if m != magic {
			return nil, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
		}
	}

	h, err := readHeaderBody(bf)
	if err != nil {
		return nil, nil, err
	}

	data, err = replay(bf)
	if err != nil {
		return nil, nil, err
	}
	bf.EndParse()

	c = &Container{
		fd:           fd,
		bf:           bf,
		cue:          newCueManager(fd, h.CueSize),
		blockSize:    h.BlockSize,
		cueSize:      h.CueSize,
		segmentStart: segmentStart,
	}
	return c, data, nil
}

// WriteRewrite encodes payload as a REWRITE record, applies the cue
// policy, writes and commits the record, and -- if writing it required
// opening a new cue -- punches a hole over the now-dead prefix of the
// file. It returns the exact encoded bytes so the caller (the handle
// layer) can alias its view onto them.
func (c *Container) WriteRewrite(payload []byte) (encoded []byte, err error) {
	encoded = encodeRewrite(nil, payload)

	rem, err := c.cue.remaining(c.bf)
	if err != nil {
		return nil, err
	}

	var newSegmentStart int64 = -1
	if int64(len(encoded)) > rem {
		boundary, err := c.cue.newCue(c.bf, c.blockSize, c.cueSize)
		if err != nil {
			return nil, err
		}
		newSegmentStart = boundary
	}

	if err = c.bf.Write(encoded); err != nil {
		return nil, err
	}
	if err = c.bf.Commit(); err != nil {
		return nil, err
	}

	if newSegmentStart >= 0 {
		if err = c.cue.zap(newSegmentStart); err != nil {
			return nil, err
		}
		c.segmentStart = newSegmentStart
	}
	return encoded, nil
}

// Flush commits the write buffer and forces it to stable storage.
func (c *Container) Flush() error {
	if err := c.bf.Commit(); err != nil {
		return err
	}
	return sysio.Fsync(c.fd)
}

// Close commits, fsyncs, and closes the underlying file descriptor.
// Every step is attempted even if an earlier one failed, and the
// first non-nil error encountered is the one returned.
func (c *Container) Close() error {
	var first error
	if err := c.bf.Commit(); err != nil && first == nil {
		first = err
	}
	if err := sysio.Fsync(c.fd); err != nil && first == nil {
		first = err
	}
	if err := sysio.Close(c.fd); err != nil && first == nil {
		first = err
	}
	return first
}

// BlockSize returns the resolved block size in effect for this file.
func (c *Container) BlockSize() uint64 { return c.blockSize }

// CueSize returns the resolved cue size in effect for this file.
func (c *Container) CueSize() uint64 { return c.cueSize }

// SegmentStart returns the absolute offset of the live segment's
// header -- 0 unless a hole has been punched.
func (c *Container) SegmentStart() int64 { return c.segmentStart }
