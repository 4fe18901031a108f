// Package zstdpool keeps reusable zstd decoders.
package zstdpool

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Pool manages reusable zstd decoders to reduce allocation overhead.
type Pool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
}

// New creates a new pool for zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func New(maxMemory uint64) *Pool {
	p := &Pool{
		maxDecoderMemory: maxMemory,
	}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder()
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// Get returns a decoder for DecodeAll calls.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *Pool) Get() (*zstd.Decoder, func(), error) {
	if p == nil || p.pool == nil {
		dec, err := p.newDecoder()
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	value := p.pool.Get()
	dec, ok := value.(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New function failed, try directly
		newDec, err := p.newDecoder()
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		p.pool.Put(dec)
	}, nil
}

// newDecoder creates a new zstd decoder with the configured memory limit.
func (p *Pool) newDecoder() (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if p != nil && p.maxDecoderMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(nil, opts...)
}
