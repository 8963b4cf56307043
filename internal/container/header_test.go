package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TheCount/bob/internal/sysio"
	"github.com/stretchr/testify/require"
)

func openHeaderTestFD(t *testing.T) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "header.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return int(f.Fd())
}

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	fd := openHeaderTestFD(t)
	bf := newBufferedFile(fd, DefaultBlockSize)
	require.NoError(t, writeHeader(bf, true, 4096, 4096*32))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, DefaultBlockSize)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)

	var m [4]byte
	_, err = rf.Read(m[:])
	require.NoError(t, err)
	require.Equal(t, magic, m)

	h, err := readHeaderBody(rf)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), h.BlockSize)
	require.Equal(t, uint64(4096*32), h.CueSize)
}

func TestReadHeaderBodyResizesOnBlockSizeMismatch(t *testing.T) {
	fd := openHeaderTestFD(t)
	// Persisted blocksize is smaller than the provisional buffer.
	bf := newBufferedFile(fd, MinBlockSize)
	require.NoError(t, writeHeader(bf, true, MinBlockSize, MinBlockSize*32))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, DefaultBlockSize)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)
	var m [4]byte
	_, err = rf.Read(m[:])
	require.NoError(t, err)

	h, err := readHeaderBody(rf)
	require.NoError(t, err)
	require.Equal(t, uint64(MinBlockSize), h.BlockSize)
	require.Equal(t, MinBlockSize, rf.blockSize)
}

func TestReadHeaderBodyResizesOnBlockSizeGrowth(t *testing.T) {
	// Persisted blocksize is larger than the provisional buffer. The
	// payload bytes immediately following the header were already
	// prefetched into the old, smaller buffer; after reallocatePreserving
	// grows it, those bytes must still read back intact rather than being
	// lost in the resize.
	fd := openHeaderTestFD(t)
	bf := newBufferedFile(fd, MinBlockSize*2)
	require.NoError(t, writeHeader(bf, true, MinBlockSize*4, MinBlockSize*4*32))
	payload := []byte("trailing-payload-bytes")
	require.NoError(t, bf.Write(payload))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, MinBlockSize)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)
	var m [4]byte
	_, err = rf.Read(m[:])
	require.NoError(t, err)

	h, err := readHeaderBody(rf)
	require.NoError(t, err)
	require.Equal(t, uint64(MinBlockSize*4), h.BlockSize)
	require.Equal(t, MinBlockSize*4, rf.blockSize)

	got := make([]byte, len(payload))
	_, err = rf.Read(got)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadVarintWrapsTruncatedReadAsCorrupt(t *testing.T) {
	fd := openHeaderTestFD(t)
	bf := newBufferedFile(fd, DefaultBlockSize)
	// A lone continuation byte with no terminating byte: the decoder
	// keeps asking for more, and the stream ends mid-varint.
	require.NoError(t, bf.Write([]byte{0x80}))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, DefaultBlockSize)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)

	_, err = readVarint(rf)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestValidateHeaderRejectsOutOfRangeBlockSize(t *testing.T) {
	err := validateHeader(segmentHeader{BlockSize: 1, CueSize: 32})
	require.ErrorIs(t, err, ErrCorrupt)

	err = validateHeader(segmentHeader{BlockSize: MaxBlockSize * 2, CueSize: MaxBlockSize * 2})
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestValidateHeaderRejectsNonMultipleCueSize(t *testing.T) {
	err := validateHeader(segmentHeader{BlockSize: 512, CueSize: 1000})
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestResolveConfigDefaults(t *testing.T) {
	bs, cs := resolveConfig(0, 0, 0)
	require.Equal(t, uint64(DefaultBlockSize), bs)
	require.Equal(t, bs*DefaultBlockSizeMultiplier, cs)
}

func TestResolveConfigUsesProbedBlockSize(t *testing.T) {
	bs, _ := resolveConfig(0, 0, 4096)
	require.Equal(t, uint64(4096), bs)
}

func TestResolveConfigClampsToBounds(t *testing.T) {
	bs, _ := resolveConfig(1, 0, 0)
	require.Equal(t, uint64(MinBlockSize), bs)

	bs, _ = resolveConfig(MaxBlockSize*2, 0, 0)
	require.Equal(t, uint64(MaxBlockSize), bs)
}

func TestResolveConfigRoundsCueSizeDownToMultiple(t *testing.T) {
	bs, cs := resolveConfig(512, 1000, 0)
	require.Equal(t, uint64(512), bs)
	require.Zero(t, cs%bs)
}
