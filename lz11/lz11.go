// Package lz11 implements the LZ11 compression scheme without its usual
// 4-byte stream header.
//
// The stream is a sequence of blocks, each a flag byte followed by up to
// eight tokens. Flag bits are consumed most significant first: 0 is a
// literal byte, 1 is a back-reference. A back-reference is 2, 3, or 4 bytes,
// selected by the high nibble of its first byte:
//
//	0:    LLLL LLLL DDDD DDDD DDDD          length 0x11..0x110
//	1:    LLLL LLLL LLLL LLLL DDDD DDDD DDDD  length 0x111..0x10110
//	2-15: LLLL DDDD DDDD DDDD               length 3..16
//
// where D+1 is the backward displacement (1..4096). The decoder needs the
// decompressed length up front; it stops as soon as that many bytes exist.
package lz11

import (
	"errors"
	"fmt"
)

const (
	// WindowSize is the largest backward displacement.
	WindowSize = 0x1000

	// MinMatch is the shortest back-reference length.
	MinMatch = 3

	// MaxMatch is the longest back-reference length.
	MaxMatch = 0x10110
)

// ErrCorrupt is returned when compressed input cannot be decoded to the
// requested length.
var ErrCorrupt = errors.New("lz11: corrupt input")

// initialCapacity bounds the output buffer reserved before any token is
// decoded. Larger outputs grow as they are produced.
const initialCapacity = 1 << 20

// MaxDecompressedLen returns the largest output a stream of srcLen bytes can
// describe: every byte spent on a longest four-byte back-reference.
func MaxDecompressedLen(srcLen int) uint64 {
	return uint64(srcLen) * (MaxMatch / 4) //nolint:gosec // srcLen is a slice length
}

// Decompress decodes src, producing exactly n bytes.
// Bytes in src after the last token needed are ignored.
func Decompress(src []byte, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrCorrupt, n)
	}
	if uint64(n) > MaxDecompressedLen(len(src)) {
		return nil, fmt.Errorf("%w: %d input bytes cannot produce %d bytes", ErrCorrupt, len(src), n)
	}
	out := make([]byte, 0, min(n, initialCapacity))
	i := 0
	for len(out) < n {
		if i >= len(src) {
			return nil, fmt.Errorf("%w: input exhausted after %d of %d bytes", ErrCorrupt, len(out), n)
		}
		flags := src[i]
		i++
		for bit := 0; bit < 8 && len(out) < n; bit++ {
			if flags&(0x80>>bit) == 0 {
				if i >= len(src) {
					return nil, fmt.Errorf("%w: input exhausted after %d of %d bytes", ErrCorrupt, len(out), n)
				}
				out = append(out, src[i])
				i++
				continue
			}

			length, disp, size, ok := readMatch(src[i:])
			if !ok {
				return nil, fmt.Errorf("%w: truncated back-reference at input offset %d", ErrCorrupt, i)
			}
			i += size
			if disp > len(out) {
				return nil, fmt.Errorf("%w: displacement %d before start of output at %d", ErrCorrupt, disp, len(out))
			}
			if length > n-len(out) {
				return nil, fmt.Errorf("%w: back-reference of %d bytes overruns length %d at %d", ErrCorrupt, length, n, len(out))
			}
			start := len(out) - disp
			for k := range length {
				out = append(out, out[start+k])
			}
		}
	}
	return out, nil
}

// readMatch parses one back-reference token from the start of b.
func readMatch(b []byte) (length, disp, size int, ok bool) {
	if len(b) < 2 {
		return 0, 0, 0, false
	}
	switch b[0] >> 4 {
	case 0:
		if len(b) < 3 {
			return 0, 0, 0, false
		}
		length = (int(b[0]&0xf)<<4 | int(b[1]>>4)) + 0x11
		disp = (int(b[1]&0xf)<<8 | int(b[2])) + 1
		return length, disp, 3, true
	case 1:
		if len(b) < 4 {
			return 0, 0, 0, false
		}
		length = (int(b[0]&0xf)<<12 | int(b[1])<<4 | int(b[2]>>4)) + 0x111
		disp = (int(b[2]&0xf)<<8 | int(b[3])) + 1
		return length, disp, 4, true
	default:
		length = int(b[0]>>4) + 1
		disp = (int(b[0]&0xf)<<8 | int(b[1])) + 1
		return length, disp, 2, true
	}
}

// appendMatch encodes a back-reference using the shortest token that holds
// length. length must be within [MinMatch, MaxMatch] and disp within
// [1, WindowSize].
func appendMatch(dst []byte, length, disp int) []byte {
	d := disp - 1
	switch {
	case length <= 0x10:
		return append(dst, byte((length-1)<<4|d>>8), byte(d))
	case length <= 0x110:
		l := length - 0x11
		return append(dst, byte(l>>4), byte((l&0xf)<<4|d>>8), byte(d))
	default:
		l := length - 0x111
		return append(dst, byte(0x10|l>>12), byte(l>>4), byte((l&0xf)<<4|d>>8), byte(d))
	}
}
