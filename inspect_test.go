package lzarc

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lzarc/internal/testutil"
)

func TestInspectDoesNotDecompress(t *testing.T) {
	t.Parallel()

	// Payload bytes are garbage, so only a table-only read can succeed.
	raw := testutil.RawArchive{
		DeclaredTotalSize: 0x100,
		AlignedTotalSize:  0x4000,
		Records: []testutil.RawRecord{
			{Name: "garbage", DataPos: 0xc0, CompressedSize: 0x10, AlignedPos: 0x2000, SizeHint: 100, UncompressedSize: 100},
		},
		Blobs: map[uint32][]byte{0xc0: bytes.Repeat([]byte{0xff}, 0x10)},
		Size:  0x100,
	}

	layout, size, err := Inspect(bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, int64(0x100), size)
	assert.Equal(t, Header{DeclaredTotalSize: 0x100, AlignedTotalSize: 0x4000, EntryCount: 1}, layout.Header)
	require.Len(t, layout.Records, 1)
	assert.Equal(t, Record{Name: "garbage", DataPos: 0xc0, CompressedSize: 0x10, AlignedPos: 0x2000, SizeHint: 100, UncompressedSize: 100}, layout.Records[0])
	require.NoError(t, layout.Validate(size))

	_, err = DecodeBytes(raw.Bytes())
	assert.ErrorIs(t, err, ErrCodec)
}

func TestInspectFile(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("x", testutil.CompressibleBytes(10000))
	path := filepath.Join(t.TempDir(), "x.lzarc")
	require.NoError(t, a.Save(path))

	layout, size, err := InspectFile(path)
	require.NoError(t, err)
	require.NoError(t, layout.Validate(size))
	assert.Equal(t, uint64(10000), layout.UncompressedSize())
	assert.Equal(t, uint64(layout.Records[0].CompressedSize), layout.CompressedSize())
	assert.Greater(t, layout.CompressionRatio(), 0.0)
	assert.Less(t, layout.CompressionRatio(), 0.5)

	_, _, err = InspectFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestInspectErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Inspect(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrFormat)

	_, _, err = Inspect(bytes.NewReader(testutil.RawArchive{EntryCount: 100}.Bytes()))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLayoutStatsEmpty(t *testing.T) {
	t.Parallel()

	l := &Layout{}
	assert.Zero(t, l.CompressedSize())
	assert.Zero(t, l.UncompressedSize())
	assert.Zero(t, l.CompressionRatio())
	assert.Equal(t, uint64(HeaderSize), l.TableEnd())
	assert.Equal(t, uint64(DataAlignment), l.StartOfData())
}

func TestLayoutValidate(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("a", []byte("first entry"))
	a.Add("b", testutil.RandomBytes(500, 6))
	a.Add("c", testutil.RandomBytes(9000, 7))
	data := encode(t, a)
	size := int64(len(data))

	base, _, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, base.Validate(size))

	clone := func() *Layout {
		l := *base
		l.Records = append([]Record(nil), base.Records...)
		return &l
	}

	tests := []struct {
		name   string
		mutate func(l *Layout)
	}{
		{"entry count mismatch", func(l *Layout) { l.Header.EntryCount++ }},
		{"declared size mismatch", func(l *Layout) { l.Header.DeclaredTotalSize += 64 }},
		{"aligned total too small", func(l *Layout) { l.Header.AlignedTotalSize = 0x1000 }},
		{"aligned total below last position", func(l *Layout) { l.Header.AlignedTotalSize = l.Records[2].AlignedPos - 1 }},
		{"payload past end", func(l *Layout) { l.Records[2].CompressedSize = uint32(size) }},
		{"payload inside table", func(l *Layout) { l.Records[0].DataPos = HeaderSize }},
		{"payloads out of order", func(l *Layout) { l.Records[0], l.Records[1] = l.Records[1], l.Records[0] }},
		{"aligned position too close", func(l *Layout) { l.Records[1].AlignedPos = l.Records[0].AlignedPos + 0x1000 }},
		{"first aligned position zero", func(l *Layout) { l.Records[0].AlignedPos = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := clone()
			tt.mutate(l)
			assert.ErrorIs(t, l.Validate(size), ErrFormat)
		})
	}
}
