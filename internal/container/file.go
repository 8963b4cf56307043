package container

import (
	"io"

	"github.com/TheCount/bob/internal/sysio"
)

// bufferMode tags which of the two disjoint invariants the scratch
// buffer currently satisfies. A file is always in exactly one of these
// modes; EndParse is the only transition, and it only ever runs once,
// right after a successful replay.
type bufferMode int

const (
	modeReading bufferMode = iota // pos <= written; [pos,written) is prefetched input
	modeWriting                   // written <= pos; [written,pos) is dirty output
)

// bufferedFile owns one open file descriptor and a single block-sized
// scratch buffer that serves both as a read-ahead window during parse
// and as a write-behind window afterwards.
type bufferedFile struct {
	fd        int
	blockSize int
	buf       []byte
	pos       int
	written   int
	mode      bufferMode
}

func newBufferedFile(fd int, blockSize int) *bufferedFile {
	return &bufferedFile{
		fd:        fd,
		blockSize: blockSize,
		buf:       make([]byte, blockSize),
		mode:      modeWriting,
	}
}

// reallocatePreserving resizes the buffer to blockSize, keeping
// whatever prefix of the old buffer still fits, and rewinds the fd by
// the surplus that had been prefetched past the true block boundary.
// Used once by the header codec when the persisted block size differs
// from the provisional size chosen at open.
func (f *bufferedFile) reallocatePreserving(blockSize int) error {
	surplus := f.written - blockSize
	if surplus > 0 {
		if _, err := sysio.SeekRelative(f.fd, -int64(surplus)); err != nil {
			return err
		}
	}
	newBuf := make([]byte, blockSize)
	// Only f.written bytes of the old buffer were ever actually read
	// from the fd; anything past that is zero-valued filler, not
	// prefetched data, whether blockSize shrank or grew relative to the
	// old (provisional) buffer.
	n := f.written
	if n > blockSize {
		n = blockSize
	}
	copy(newBuf, f.buf[:n])
	f.buf = newBuf
	f.blockSize = blockSize
	f.written = n
	return nil
}

// Write implements the fast/slow path write. It is only valid in
// modeWriting.
func (f *bufferedFile) Write(p []byte) error {
	if f.pos+len(p) <= f.blockSize {
		copy(f.buf[f.pos:], p)
		f.pos += len(p)
		return nil
	}
	return f.writeSlow(p)
}

func (f *bufferedFile) writeSlow(p []byte) error {
	count := len(p)
	// smallest multiple of blockSize >= pos+count
	target := f.pos + count
	aligned := ((target + f.blockSize - 1) / f.blockSize) * f.blockSize
	delta := int64(aligned - f.pos)
	if err := sysio.PreallocateNext(f.fd, delta); err != nil {
		return err
	}
	if err := f.flushDirty(); err != nil {
		return err
	}
	surplus := f.blockSize - f.pos
	fullBlocks := (count - surplus) / f.blockSize
	towrite := surplus + fullBlocks*f.blockSize
	if err := sysio.Write(f.fd, p[:towrite]); err != nil {
		return err
	}
	tail := p[towrite:]
	copy(f.buf, tail)
	f.written = 0
	f.pos = len(tail)
	return nil
}

// flushDirty writes [written,pos) to the fd without advancing the fd's
// logical position tracking beyond what the write itself does.
func (f *bufferedFile) flushDirty() error {
	if f.written >= f.pos {
		return nil
	}
	return sysio.Write(f.fd, f.buf[f.written:f.pos])
}

// Commit flushes [written,pos) and advances written = pos. It is
// idempotent when the buffer is already clean. This deliberately does
// NOT reset written to 0 when pos equals blockSize -- the next
// Write's pos+count>blockSize branch handles that refill on its own.
func (f *bufferedFile) Commit() error {
	if err := f.flushDirty(); err != nil {
		return err
	}
	f.written = f.pos
	return nil
}

// Read implements the parse-time read path.
func (f *bufferedFile) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		avail := f.written - f.pos
		if avail == 0 {
			got, err := f.refill()
			if err != nil {
				return n, err
			}
			if got == 0 {
				// refill produced nothing: caller asked for more than
				// the stream has, which is always a format error here
				// because records are self-delimiting by length.
				return n, io.ErrUnexpectedEOF
			}
			continue
		}
		c := copy(p[n:], f.buf[f.pos:f.written])
		f.pos += c
		n += c
	}
	return n, nil
}

// ReadByte reads a single byte from the parse-time stream. The varint
// decoder drives the parser one byte at a time so it never needs
// look-ahead against the block buffer.
func (f *bufferedFile) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// refill tops up the buffer from the fd, reading up to
// blockSize-written bytes, and reports how many bytes it actually
// read.
func (f *bufferedFile) refill() (int, error) {
	if f.written == f.blockSize {
		f.pos, f.written = 0, 0
	}
	room := f.blockSize - f.written
	if room == 0 {
		return 0, nil
	}
	n, err := sysio.Read(f.fd, f.buf[f.written:f.blockSize])
	if err != nil {
		return 0, err
	}
	f.written += n
	return n, nil
}

// IsEOF attempts a refill and reports true iff it produced nothing.
// It reports on bytes actually read this call rather than comparing
// written before and after, since refill resets written to 0 whenever
// the buffer had been exactly full -- a read that then refills a full
// new block would otherwise look identical to one that read nothing.
func (f *bufferedFile) IsEOF() (bool, error) {
	if f.pos < f.written {
		return false, nil
	}
	got, err := f.refill()
	if err != nil {
		return false, err
	}
	return got == 0, nil
}

// EndParse transitions the buffer from read mode to write mode: pos
// and written both become blockSize, forcing the next Write through
// the slow path and aligning it to a block boundary. The fd's offset
// is left exactly where parsing stopped -- the end of the last
// segment's last record.
func (f *bufferedFile) EndParse() {
	f.pos = f.blockSize
	f.written = f.blockSize
	f.mode = modeWriting
}

// ResetForSegment zeroes both cursors, used by the cue manager when it
// opens a fresh, empty segment at a cue boundary.
func (f *bufferedFile) ResetForSegment() {
	f.pos = 0
	f.written = 0
}
