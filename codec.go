package lzarc

import "github.com/meigma/lzarc/lz11"

// Codec compresses and decompresses entry payloads. The container frame
// header is handled by the encoder and decoder; codecs see only the bytes
// after it.
//
// Implementations must be safe for concurrent use and deterministic:
// compressing the same input twice must yield the same bytes.
type Codec interface {
	// Name identifies the codec in logs and listings.
	Name() string

	// Compress returns the compressed form of src.
	Compress(src []byte) ([]byte, error)

	// Decompress returns exactly n bytes decoded from src, or an error.
	Decompress(src []byte, n int) ([]byte, error)
}

// LZ11 is the default codec, matching the reference tooling.
var LZ11 Codec = lz11Codec{}

type lz11Codec struct{}

func (lz11Codec) Name() string { return "lz11" }

func (lz11Codec) Compress(src []byte) ([]byte, error) {
	return lz11.Compress(src), nil
}

func (lz11Codec) Decompress(src []byte, n int) ([]byte, error) {
	return lz11.Decompress(src, n)
}

// CodecByName returns the built-in codec with the given name.
// "zstd" builds a new *ZstdCodec with default settings on every call; the
// caller owns it and should Close it when done.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "lz11":
		return LZ11, true
	case "zstd":
		c, err := NewZstdCodec()
		if err != nil {
			return nil, false
		}
		return c, true
	default:
		return nil, false
	}
}
