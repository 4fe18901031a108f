package lzarc

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/lzarc/internal/zstdpool"
)

// zstdInitialCapacity bounds the output buffer reserved before decoding.
const zstdInitialCapacity = 1 << 20

// ZstdCodec stores payloads as zstd frames. Archives written with it use the
// standard container layout but cannot be read by tools that only know LZ11.
//
// A ZstdCodec is safe for concurrent use and is meant to be reused across
// archives. Call Close when it is no longer needed.
type ZstdCodec struct {
	enc  *zstd.Encoder
	pool *zstdpool.Pool
}

// ZstdOption configures a ZstdCodec.
type ZstdOption func(*zstdConfig)

type zstdConfig struct {
	level            zstd.EncoderLevel
	maxDecoderMemory uint64
}

// ZstdWithLevel sets the encoder level (default: zstd.SpeedDefault).
func ZstdWithLevel(level zstd.EncoderLevel) ZstdOption {
	return func(c *zstdConfig) {
		c.level = level
	}
}

// ZstdWithMaxDecoderMemory limits the memory used by each decoder.
// Set limit to 0 to disable the limit.
func ZstdWithMaxDecoderMemory(limit uint64) ZstdOption {
	return func(c *zstdConfig) {
		c.maxDecoderMemory = limit
	}
}

// NewZstdCodec creates a zstd codec.
func NewZstdCodec(opts ...ZstdOption) (*ZstdCodec, error) {
	cfg := zstdConfig{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&cfg)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(cfg.level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &ZstdCodec{
		enc:  enc,
		pool: zstdpool.New(cfg.maxDecoderMemory),
	}, nil
}

// Name returns "zstd".
func (c *ZstdCodec) Name() string { return "zstd" }

// Compress encodes src as a single zstd frame. Empty input produces no
// bytes, so empty entries carry only their frame header.
func (c *ZstdCodec) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decompress decodes src and checks that it yields exactly n bytes.
// A frame that declares a different content size is rejected before any
// output is allocated.
func (c *ZstdCodec) Decompress(src []byte, n int) ([]byte, error) {
	var hdr zstd.Header
	if err := hdr.Decode(src); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if hdr.HasFCS && hdr.FrameContentSize != uint64(n) { //nolint:gosec // n is non-negative
		return nil, fmt.Errorf("zstd: frame declares %d bytes, expected %d", hdr.FrameContentSize, n)
	}

	dec, release, err := c.pool.Get()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer release()

	out, err := dec.DecodeAll(src, make([]byte, 0, min(n, zstdInitialCapacity)))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("zstd: decoded %d bytes, expected %d", len(out), n)
	}
	return out, nil
}

// Close releases the encoder. The codec must not be used afterwards.
func (c *ZstdCodec) Close() error {
	return c.enc.Close()
}
