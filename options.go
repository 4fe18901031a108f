package lzarc

import (
	"log/slog"
	"runtime"
)

// DefaultMaxEntrySize is the largest decompressed entry Decode accepts when
// no DecodeWithMaxEntrySize option is set.
const DefaultMaxEntrySize = 256 << 20

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	codec        Codec
	maxEntrySize uint64
	strictSizes  bool
	logger       *slog.Logger
	progress     ProgressFunc
}

func newDecodeConfig(opts []DecodeOption) decodeConfig {
	cfg := decodeConfig{
		codec:        LZ11,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.codec == nil {
		cfg.codec = LZ11
	}
	return cfg
}

// DecodeWithCodec sets the payload codec (default: LZ11).
func DecodeWithCodec(c Codec) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.codec = c
	}
}

// DecodeWithMaxEntrySize limits the decompressed size of any single entry.
// The limit is checked before buffers are allocated. Set limit to 0 to
// disable it; the 32-bit size field still bounds every entry.
func DecodeWithMaxEntrySize(limit uint64) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.maxEntrySize = limit
	}
}

// DecodeWithStrictSizes requires both size words of every record to agree,
// as archives of the first revision do. Disabled by default because later
// archives may use the first word differently.
func DecodeWithStrictSizes(enabled bool) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.strictSizes = enabled
	}
}

// DecodeWithLogger sets a logger for decode diagnostics.
func DecodeWithLogger(logger *slog.Logger) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.logger = logger
	}
}

// DecodeWithProgress sets a callback for per-entry progress.
func DecodeWithProgress(fn ProgressFunc) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.progress = fn
	}
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeConfig)

type encodeConfig struct {
	codec       Codec
	concurrency int
	logger      *slog.Logger
	progress    ProgressFunc
}

func newEncodeConfig(opts []EncodeOption) encodeConfig {
	cfg := encodeConfig{codec: LZ11}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.codec == nil {
		cfg.codec = LZ11
	}
	if cfg.concurrency == 0 {
		cfg.concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	return cfg
}

// EncodeWithCodec sets the payload codec (default: LZ11).
func EncodeWithCodec(c Codec) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.codec = c
	}
}

// EncodeWithConcurrency sets how many entries are compressed at once.
// Values < 0 force serial compression. Zero uses GOMAXPROCS.
// The output does not depend on this setting.
func EncodeWithConcurrency(n int) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.concurrency = n
	}
}

// EncodeWithLogger sets a logger for encode diagnostics.
func EncodeWithLogger(logger *slog.Logger) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.logger = logger
	}
}

// EncodeWithProgress sets a callback for per-entry progress.
func EncodeWithProgress(fn ProgressFunc) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.progress = fn
	}
}

func discardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
