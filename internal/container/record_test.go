package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TheCount/bob/internal/sysio"
	"github.com/stretchr/testify/require"
)

func openRecordTestFD(t *testing.T) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return int(f.Fd())
}

func TestEncodeRewriteThenReplay(t *testing.T) {
	fd := openRecordTestFD(t)
	bf := newBufferedFile(fd, 16)

	payload := []byte("the quick brown fox")
	require.NoError(t, bf.Write(encodeRewrite(nil, payload)))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, 16)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)

	data, err := replay(rf)
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestReplayKeepsOnlyLatestRewrite(t *testing.T) {
	fd := openRecordTestFD(t)
	bf := newBufferedFile(fd, 16)

	first := []byte("first value")
	second := []byte("second, longer value")
	require.NoError(t, bf.Write(encodeRewrite(nil, first)))
	require.NoError(t, bf.Write(encodeRewrite(nil, second)))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, 16)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)

	data, err := replay(rf)
	require.NoError(t, err)
	require.Equal(t, second, data)
}

func TestReplayRejectsUnknownBlockID(t *testing.T) {
	fd := openRecordTestFD(t)
	bf := newBufferedFile(fd, 16)

	var scratch []byte
	scratch = append(scratch, 0x7f) // an id that is neither blockRewrite nor a header config id
	scratch = append(scratch, 0x00)
	require.NoError(t, bf.Write(scratch))
	require.NoError(t, bf.Commit())

	rf := newBufferedFile(fd, 16)
	_, err := sysio.SeekAbsolute(fd, 0)
	require.NoError(t, err)

	_, err = replay(rf)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReplayEmptyStreamYieldsNil(t *testing.T) {
	fd := openRecordTestFD(t)
	rf := newBufferedFile(fd, 16)

	data, err := replay(rf)
	require.NoError(t, err)
	require.Nil(t, data)
}
