// Package varint implements the little-endian base-128 encoding used by
// the BOB container format for every integer on disk: configuration
// values in segment headers and (blockId, length) pairs in records.
package varint

import "errors"

// MaxLen is the largest number of bytes Encode ever produces.
const MaxLen = 10

// ErrOverflow is returned when a sequence would decode to a value that
// does not fit in 64 bits.
var ErrOverflow = errors.New("varint: overflows uint64")

// ErrOverlong is returned when a terminator byte (continuation bit
// clear) carries a zero payload but is not the first byte of the
// sequence -- a shorter encoding of the same value exists.
var ErrOverlong = errors.New("varint: invalid short form")

// ErrTooLong is returned when more than MaxLen bytes have been fed
// without terminating. Decode also returns it when buf ends before the
// sequence terminates.
var ErrTooLong = errors.New("varint: sequence too long")

// Encode appends the base-128 encoding of n to dst and returns the
// extended slice. The encoding is 1..MaxLen bytes long.
func Encode(dst []byte, n uint64) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

// Len reports the number of bytes Encode(n) would produce.
func Len(n uint64) int {
	l := 1
	for n >= 0x80 {
		n >>= 7
		l++
	}
	return l
}

// Decoder incrementally decodes one varint, one byte at a time, so a
// caller never needs to look ahead in its input stream. The zero value
// is ready to decode the first byte of a sequence.
type Decoder struct {
	value uint64
	count int
}

// Reset prepares the decoder to decode a new sequence.
func (d *Decoder) Reset() {
	d.value = 0
	d.count = 0
}

// Step feeds the next byte of the sequence to the decoder. It reports
// done=true and the accumulated value once the sequence is complete.
// On error the decoder's state is unspecified and must be Reset before
// reuse.
func (d *Decoder) Step(b byte) (done bool, value uint64, err error) {
	if d.count >= MaxLen {
		return false, 0, ErrTooLong
	}
	payload := uint64(b & 0x7f)
	if d.count == MaxLen-1 && payload > 1 {
		// a 10th byte can only contribute the 64th bit.
		return false, 0, ErrOverflow
	}
	more := b&0x80 != 0
	if !more && payload == 0 && d.count != 0 {
		return false, 0, ErrOverlong
	}
	d.value |= payload << (7 * uint(d.count))
	if !more {
		return true, d.value, nil
	}
	d.count++
	return false, 0, nil
}

// Decode decodes a single varint from the start of buf, returning the
// value and the number of bytes consumed. It is a convenience wrapper
// around Decoder for callers that already hold the whole sequence in
// memory (e.g. round-trip tests); the incremental parser in
// internal/container never has a whole buffer, so it drives Decoder
// directly one byte at a time instead.
func Decode(buf []byte) (value uint64, n int, err error) {
	var d Decoder
	for i, b := range buf {
		done, v, err := d.Step(b)
		if err != nil {
			return 0, 0, err
		}
		if done {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTooLong
}
