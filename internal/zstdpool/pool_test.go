package zstdpool

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDecodes(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	data := bytes.Repeat([]byte("pooled decoder "), 1000)
	frame := enc.EncodeAll(data, nil)

	p := New(0)
	for range 3 {
		dec, release, err := p.Get()
		require.NoError(t, err)
		out, err := dec.DecodeAll(frame, nil)
		release()
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}
}

func TestNilPool(t *testing.T) {
	var p *Pool
	dec, release, err := p.Get()
	require.NoError(t, err)
	require.NotNil(t, dec)
	release()
}

func TestPoolRejectsGarbage(t *testing.T) {
	dec, release, err := New(1 << 20).Get()
	require.NoError(t, err)
	defer release()

	_, err = dec.DecodeAll([]byte("not a zstd frame"), nil)
	require.Error(t, err)
}
