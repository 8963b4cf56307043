// Package sysio wraps the raw OS calls the buffered container layer
// needs and which the standard library's os.File does not expose:
// EINTR-safe read/write, fsync, lseek, fallocate with KEEP_SIZE, hole
// punching, and SEEK_DATA. Every wrapper retries transparently on
// EINTR and otherwise returns on the first success or first
// non-EINTR error, except Write, which keeps writing until its whole
// buffer is drained.
package sysio

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// Open opens path with the given flags and mode, retrying on EINTR.
func Open(path string, flags int, mode uint32) (fd int, err error) {
	for {
		fd, err = unix.Open(path, flags, mode)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return fd, err
		}
	}
}

// Close closes fd, retrying on EINTR.
func Close(fd int) error {
	for {
		err := unix.Close(fd)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// Unlink removes path, retrying on EINTR.
func Unlink(path string) error {
	for {
		err := unix.Unlink(path)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// Read performs a single read into buf, retrying on EINTR. Unlike
// Write it does not loop to fill buf -- short reads are meaningful to
// the buffered file's refill logic.
func Read(fd int, buf []byte) (n int, err error) {
	for {
		n, err = unix.Read(fd, buf)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return n, err
		}
	}
}

// Write writes all of buf to fd, looping internally until the full
// count is drained or a non-EINTR error occurs.
func Write(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// Seek repositions fd, retrying on EINTR.
func Seek(fd int, offset int64, whence int) (int64, error) {
	for {
		off, err := unix.Seek(fd, offset, whence)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return off, err
		}
	}
}

// CurrentOffset reports fd's current file offset.
func CurrentOffset(fd int) (int64, error) {
	return Seek(fd, 0, unix.SEEK_CUR)
}

// SeekRelative moves fd's offset by delta bytes relative to its
// current position (negative delta rewinds).
func SeekRelative(fd int, delta int64) (int64, error) {
	return Seek(fd, delta, unix.SEEK_CUR)
}

// SeekAbsolute moves fd's offset to offset bytes from the start of the
// file.
func SeekAbsolute(fd int, offset int64) (int64, error) {
	return Seek(fd, offset, unix.SEEK_SET)
}

// Fsync forces fd's contents to stable storage, retrying on EINTR.
func Fsync(fd int) error {
	for {
		err := unix.Fsync(fd)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// PreallocateNext reserves length bytes starting at fd's current
// offset using FALLOC_FL_KEEP_SIZE, so the reservation never extends
// the file's logical size -- only its allocated blocks.
func PreallocateNext(fd int, length int64) error {
	off, err := CurrentOffset(fd)
	if err != nil {
		return err
	}
	for {
		err := unix.Fallocate(fd, unix.FALLOC_FL_KEEP_SIZE, off, length)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// PunchHole releases the physical storage backing [offset, offset+length)
// while leaving the logical file size unchanged.
func PunchHole(fd int, offset, length int64) error {
	for {
		err := unix.Fallocate(fd, unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, offset, length)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// SeekData finds the offset of the first byte of data at or after
// offset, skipping any punched hole. It returns io.EOF if offset is at
// or past the end of the file, and propagates any other error (e.g. on
// a filesystem without sparse-extent support) unchanged.
func SeekData(fd int, offset int64) (int64, error) {
	for {
		off, err := unix.Seek(fd, offset, unix.SEEK_DATA)
		if err == nil {
			return off, nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ENXIO) {
			return 0, io.EOF
		}
		return 0, err
	}
}

// BlockSizeHint probes the filesystem backing fd for its preferred I/O
// block size. It is used to resolve Config.BlockSize == 0 ("auto").
func BlockSizeHint(fd int) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Fstatfs(fd, &st); err != nil {
		return 0, err
	}
	if st.Bsize <= 0 {
		return 0, nil
	}
	return uint64(st.Bsize), nil
}
