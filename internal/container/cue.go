package container

import (
	"github.com/TheCount/bob/internal/sysio"
)

// cueManager tracks the cue-size boundary policy: when a write would
// overflow the current cue's remaining space, it opens a fresh,
// self-contained segment at the next cue-aligned offset and hands back
// that new segment's start offset, so the caller can reclaim everything
// before it.
type cueManager struct {
	fd      int
	cueSize int64
}

func newCueManager(fd int, cueSize uint64) *cueManager {
	return &cueManager{fd: fd, cueSize: int64(cueSize)}
}

// logicalOffset returns the position the next byte written through bf
// would land at: the fd's real on-disk offset plus whatever bf is
// still holding dirty (written but not yet flushed to the fd). A
// freshly-created, never-committed bf (e.g. Create's buffered header)
// has a real fd offset of 0 but a nonzero logical offset -- using the
// raw fd offset alone would mistake "nothing flushed yet" for "exactly
// at a cue boundary".
func (c *cueManager) logicalOffset(bf *bufferedFile) (int64, error) {
	off, err := sysio.CurrentOffset(c.fd)
	if err != nil {
		return 0, err
	}
	return off + int64(bf.pos-bf.written), nil
}

// remaining returns the number of bytes still available in the cue
// block starting at bf's current logical offset, or 0 if that offset
// sits exactly on a cue boundary.
func (c *cueManager) remaining(bf *bufferedFile) (int64, error) {
	off, err := c.logicalOffset(bf)
	if err != nil {
		return 0, err
	}
	mod := off % c.cueSize
	if mod == 0 {
		return 0, nil
	}
	return c.cueSize - mod, nil
}

// newCue seeks to the next cue-aligned offset, resets bf to an empty
// segment, writes a fresh (magic-less) segment header there, and
// returns the boundary offset -- the start of the new segment, which is
// also the end of the now-dead prefix that zap reclaims once the first
// record of the new segment has been committed.
func (c *cueManager) newCue(bf *bufferedFile, blockSize, cueSize uint64) (int64, error) {
	off, err := c.logicalOffset(bf)
	if err != nil {
		return 0, err
	}
	mod := off % c.cueSize
	boundary := off
	if mod != 0 {
		boundary = off + (c.cueSize - mod)
	}
	if _, err := sysio.SeekAbsolute(c.fd, boundary); err != nil {
		return 0, err
	}
	bf.ResetForSegment()
	if err := writeHeader(bf, false, blockSize, cueSize); err != nil {
		return 0, err
	}
	return boundary, nil
}

// zap punches a hole over [0, start), releasing the physical storage
// of every segment before the one that now starts at start while
// leaving the file's logical size unchanged.
func (c *cueManager) zap(start int64) error {
	if start <= 0 {
		return nil
	}
	return sysio.PunchHole(c.fd, 0, start)
}
