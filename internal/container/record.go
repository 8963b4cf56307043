package container

import (
	"fmt"

	"github.com/TheCount/bob/internal/varint"
)

// Record block ids. Distinct namespace from the header's config ids in
// header.go.
const (
	blockRewrite = 1
)

// encodeRewrite appends a self-delimiting REWRITE record -- (blockId,
// length, payload) -- to dst and returns the extended slice.
func encodeRewrite(dst []byte, payload []byte) []byte {
	dst = varint.Encode(dst, blockRewrite)
	dst = varint.Encode(dst, uint64(len(payload)))
	dst = append(dst, payload...)
	return dst
}

// replay reads every record remaining in bf until EOF and replays them
// into the reconstruction buffer that becomes the container's current
// bytes. It leaves bf positioned for EndParse.
func replay(bf *bufferedFile) ([]byte, error) {
	var data []byte
	for {
		eof, err := bf.IsEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			return data, nil
		}
		id, err := readVarint(bf)
		if err != nil {
			return nil, err
		}
		switch id {
		case blockRewrite:
			n, err := readVarint(bf)
			if err != nil {
				return nil, err
			}
			buf := make([]byte, n)
			if n > 0 {
				if _, err := bf.Read(buf); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
				}
			}
			data = buf
		default:
			return nil, fmt.Errorf("%w: unknown record block id %d", ErrCorrupt, id)
		}
	}
}
