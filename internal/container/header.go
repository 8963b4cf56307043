package container

import (
	"fmt"

	"github.com/TheCount/bob/internal/varint"
)

// Segment header config ids. Distinct namespace from record block ids
// in record.go.
const (
	configEnd       = 0
	configBlockSize = 1
	configCueSize   = 2
)

// magic is written only once, at the very start of a file's first
// segment.
var magic = [4]byte{'B', 'O', 'B', 0}

const (
	// MinBlockSize and MaxBlockSize bound an accepted, persisted
	// blocksize value.
	MinBlockSize = 512
	MaxBlockSize = 4 << 20

	// DefaultBlockSize is the provisional buffer size used while
	// opening a file, before the true blocksize has been read from
	// its header.
	DefaultBlockSize = 32 << 10

	// DefaultBlockSizeMultiplier resolves Config.CueSize == 0 ("auto")
	// to blocksize * DefaultBlockSizeMultiplier.
	DefaultBlockSizeMultiplier = 32

	// MaxCueSize bounds an accepted, persisted cuesize value.
	MaxCueSize = 1 << 30
)

// writeHeader emits a segment header into bf: magic (iff writeMagic),
// then (BLOCK_SIZE, blockSize), (CUE_SIZE, cueSize), then END.
func writeHeader(bf *bufferedFile, writeMagic bool, blockSize, cueSize uint64) error {
	if writeMagic {
		if err := bf.Write(magic[:]); err != nil {
			return err
		}
	}
	var scratch []byte
	scratch = varint.Encode(scratch, configBlockSize)
	scratch = varint.Encode(scratch, blockSize)
	scratch = varint.Encode(scratch, configCueSize)
	scratch = varint.Encode(scratch, cueSize)
	scratch = varint.Encode(scratch, configEnd)
	return bf.Write(scratch)
}

// readVarint drives the incremental varint decoder one byte at a time
// against bf's parse-time read window, so the parser never needs
// look-ahead.
func readVarint(bf *bufferedFile) (uint64, error) {
	var d varint.Decoder
	for {
		b, err := bf.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		done, value, err := d.Step(b)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if done {
			return value, nil
		}
	}
}

// segmentHeader is the parsed, validated content of a header: the
// persisted block size and cue size.
type segmentHeader struct {
	BlockSize uint64
	CueSize   uint64
}

// readHeaderBody decodes the varint (configId, value) pairs that
// follow the (already consumed) magic or segment start, validates
// them, and -- if the persisted block size differs from bf's current
// provisional size -- resizes bf in place.
func readHeaderBody(bf *bufferedFile) (segmentHeader, error) {
	var h segmentHeader
	for {
		id, err := readVarint(bf)
		if err != nil {
			return h, err
		}
		switch id {
		case configEnd:
			if err := validateHeader(h); err != nil {
				return h, err
			}
			if h.BlockSize != uint64(bf.blockSize) {
				if err := bf.reallocatePreserving(int(h.BlockSize)); err != nil {
					return h, err
				}
			}
			return h, nil
		case configBlockSize:
			v, err := readVarint(bf)
			if err != nil {
				return h, err
			}
			h.BlockSize = v
		case configCueSize:
			v, err := readVarint(bf)
			if err != nil {
				return h, err
			}
			h.CueSize = v
		default:
			return h, fmt.Errorf("%w: unknown header config id %d", ErrCorrupt, id)
		}
	}
}

func validateHeader(h segmentHeader) error {
	if h.BlockSize < MinBlockSize || h.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: blocksize %d out of range [%d,%d]", ErrCorrupt, h.BlockSize, MinBlockSize, MaxBlockSize)
	}
	if h.CueSize < h.BlockSize || h.CueSize%h.BlockSize != 0 {
		return fmt.Errorf("%w: cuesize %d not a multiple of blocksize %d", ErrCorrupt, h.CueSize, h.BlockSize)
	}
	return nil
}

// resolveConfig applies the "0 means auto" defaulting and clamping
// rules for a requested configuration.
func resolveConfig(blockSize, cueSize uint64, probed uint64) (uint64, uint64) {
	if blockSize == 0 {
		if probed > 0 {
			blockSize = probed
		} else {
			blockSize = DefaultBlockSize
		}
	}
	if blockSize < MinBlockSize {
		blockSize = MinBlockSize
	}
	if blockSize > MaxBlockSize {
		blockSize = MaxBlockSize
	}
	if cueSize == 0 {
		cueSize = blockSize * DefaultBlockSizeMultiplier
	}
	if cueSize > MaxCueSize {
		cueSize = MaxCueSize
	}
	cueSize -= cueSize % blockSize
	if cueSize < blockSize {
		cueSize = blockSize * DefaultBlockSizeMultiplier
	}
	return blockSize, cueSize
}
