package lzarc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lzarc/internal/testutil"
)

func encode(t *testing.T, a *Archive, opts ...EncodeOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(a, &buf, opts...))
	return buf.Bytes()
}

// contents renders entries as "name=data" in order, so comparisons do not
// depend on nil versus empty slices.
func contents(a *Archive) []string {
	out := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Name+"="+string(e.Data))
	}
	return out
}

func TestEncodeEmptyArchive(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	data := encode(t, a)

	require.Len(t, data, 64)
	assert.Equal(t, uint32(64), binary.BigEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(MemoryAlignment), binary.BigEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(data[8:12]))
	assert.Equal(t, make([]byte, 52), data[12:])

	assert.Equal(t, uint32(64), a.DeclaredTotalSize)
	assert.Equal(t, uint32(MemoryAlignment), a.AlignedTotalSize)

	got, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
	assert.Equal(t, uint32(64), got.DeclaredTotalSize)
	assert.Equal(t, uint32(MemoryAlignment), got.AlignedTotalSize)
}

func TestEncodeTwoEntries(t *testing.T) {
	t.Parallel()

	big := testutil.CompressibleBytes(50000)
	a := &Archive{}
	a.Add("bigger/name.bin", big)
	a.Add("a.txt", []byte("hello"))
	data := encode(t, a)

	layout, size, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)
	require.Len(t, layout.Records, 2)
	assert.Equal(t, uint32(2), layout.Header.EntryCount)

	first, second := layout.Records[0], layout.Records[1]
	assert.Equal(t, "a.txt", first.Name)
	assert.Equal(t, "bigger/name.bin", second.Name)

	// 12 + 2*148 = 308, aligned to 320.
	assert.Equal(t, uint32(320), first.DataPos)
	assert.Equal(t, uint32(AlignUp(uint64(first.End()), DataAlignment)), second.DataPos)
	assert.Equal(t, uint32(5), first.UncompressedSize)
	assert.Equal(t, uint32(5), first.SizeHint)
	assert.Equal(t, uint32(50000), second.UncompressedSize)
	assert.Equal(t, uint32(50000), second.SizeHint)

	assert.Equal(t, uint32(0x2000), first.AlignedPos)
	assert.Equal(t, uint32(0x2000+0x4000), second.AlignedPos)
	assert.Equal(t, uint32(0x2000+0x4000+0x10000), layout.Header.AlignedTotalSize)
	assert.Equal(t, uint32(len(data)), layout.Header.DeclaredTotalSize)

	assert.Equal(t, []byte{FrameTag, 5, 0, 0}, data[first.DataPos:first.DataPos+4])
	assert.Equal(t, []byte{FrameTag, 0x50, 0xc3, 0}, data[second.DataPos:second.DataPos+4])
	assert.Less(t, second.CompressedSize, uint32(50000))

	got, err := DecodeBytes(data)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "hello", string(got.Entries[0].Data))
	assert.Equal(t, big, got.Entries[1].Data)
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []FileEntry
	}{
		{"single", []FileEntry{{Name: "one.txt", Data: []byte("one")}}},
		{"empty entry", []FileEntry{{Name: "empty", Data: nil}, {Name: "full", Data: []byte("x")}}},
		{"only empty entries", []FileEntry{{Name: "a"}, {Name: "b"}, {Name: "c"}}},
		{"duplicate names", []FileEntry{
			{Name: "dup", Data: []byte("first")},
			{Name: "dup", Data: []byte("second!")},
		}},
		{"random", []FileEntry{
			{Name: "r1", Data: testutil.RandomBytes(100000, 1)},
			{Name: "r2", Data: testutil.RandomBytes(7, 2)},
			{Name: "r3", Data: testutil.RandomBytes(4096, 3)},
		}},
		{"compressible", []FileEntry{{Name: "text", Data: testutil.CompressibleBytes(300000)}}},
		{"longest name", []FileEntry{{Name: strings.Repeat("n", MaxNameLen), Data: []byte("long")}}},
		{"non-ascii name", []FileEntry{{Name: "dir/файл.dat", Data: []byte("utf-8")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := &Archive{Entries: tt.entries}
			data := encode(t, a)

			got, err := DecodeBytes(data)
			require.NoError(t, err)
			// Encode sorted a in place, so a is now in table order.
			assert.Equal(t, contents(a), contents(got))
			assert.Equal(t, a.DeclaredTotalSize, got.DeclaredTotalSize)
			assert.Equal(t, a.AlignedTotalSize, got.AlignedTotalSize)
			assert.Equal(t, uint32(len(data)), got.DeclaredTotalSize)
		})
	}
}

func TestEncodeLayoutInvariants(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	for i := range 40 {
		a.Add(fmt.Sprintf("file-%02d", i), testutil.RandomBytes(i*307, uint64(i)))
	}
	data := encode(t, a)

	layout, size, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, layout.Validate(size))

	assert.Zero(t, layout.StartOfData()%DataAlignment)
	prevAligned := uint32(0)
	for i, rec := range layout.Records {
		assert.Zero(t, rec.DataPos%DataAlignment, "record %d", i)
		assert.LessOrEqual(t, rec.End(), uint64(size), "record %d", i)
		assert.GreaterOrEqual(t, rec.AlignedPos, prevAligned+MemoryAlignment, "record %d", i)
		assert.Zero(t, rec.AlignedPos%MemoryAlignment, "record %d", i)
		prevAligned = rec.AlignedPos
	}
	assert.GreaterOrEqual(t, layout.Header.AlignedTotalSize, prevAligned)
}

func TestEncodeSortsStablyBySize(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("c", []byte("333"))
	a.Add("a", []byte("1"))
	a.Add("b1", []byte("22"))
	a.Add("b2", []byte("22"))
	a.Add("z", nil)
	encode(t, a)

	names := make([]string, 0, a.Len())
	for _, e := range a.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"z", "a", "b1", "b2", "c"}, names)
}

func TestEncodeZeroLengthEntry(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("empty", nil)
	data := encode(t, a)

	layout, _, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, layout.Records, 1)
	rec := layout.Records[0]
	assert.Equal(t, uint32(FrameHeaderSize), rec.CompressedSize)
	assert.Equal(t, uint32(0), rec.UncompressedSize)
	assert.Equal(t, []byte{FrameTag, 0, 0, 0}, data[rec.DataPos:rec.End()])

	got, err := DecodeBytes(data)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "empty", got.Entries[0].Name)
	assert.Empty(t, got.Entries[0].Data)
}

func TestEncodeNameLength(t *testing.T) {
	t.Parallel()

	t.Run("127 bytes", func(t *testing.T) {
		t.Parallel()
		name := strings.Repeat("a", 127)
		a := &Archive{}
		a.Add(name, []byte("ok"))
		got, err := DecodeBytes(encode(t, a))
		require.NoError(t, err)
		assert.Equal(t, name, got.Entries[0].Name)
	})

	t.Run("128 bytes", func(t *testing.T) {
		t.Parallel()
		a := &Archive{}
		a.Add("big", []byte("larger entry"))
		a.Add(strings.Repeat("a", 128), []byte("x"))

		var buf bytes.Buffer
		err := Encode(a, &buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEncoding)
		assert.ErrorIs(t, err, ErrNameTooLong)
		var entryErr *EntryError
		require.ErrorAs(t, err, &entryErr)
		assert.Equal(t, 1, entryErr.Index)

		assert.Zero(t, buf.Len())
		assert.Equal(t, "big", a.Entries[0].Name, "archive must not be reordered on failure")
		assert.Zero(t, a.DeclaredTotalSize)
	})
}

func TestEncodeConcurrencyIsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *Archive {
		a := &Archive{}
		for i := range 64 {
			a.Add(fmt.Sprintf("f%d", i), testutil.RandomBytes(1000+i*13%5, uint64(i)))
		}
		return a
	}

	serial := encode(t, build(), EncodeWithConcurrency(-1))
	parallel := encode(t, build(), EncodeWithConcurrency(8))
	defaulted := encode(t, build())
	assert.Equal(t, serial, parallel)
	assert.Equal(t, serial, defaulted)
}

func TestEncodeProgress(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	a := &Archive{}
	a.Add("a", []byte("aaaa"))
	a.Add("b", []byte("bb"))
	encode(t, a, EncodeWithProgress(func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	var compressing, writing []ProgressEvent
	for _, ev := range events {
		switch ev.Stage {
		case StageCompressing:
			compressing = append(compressing, ev)
		case StageWriting:
			writing = append(writing, ev)
		}
	}
	require.Len(t, compressing, 2)
	require.Len(t, writing, 2)
	for _, ev := range compressing {
		assert.Equal(t, uint64(6), ev.BytesTotal)
		assert.Equal(t, 2, ev.FilesTotal)
	}
	assert.Equal(t, "b", writing[0].Name)
	assert.Equal(t, "a", writing[1].Name)
	assert.Equal(t, uint64(6), writing[1].BytesDone)
	assert.Equal(t, 2, writing[1].FilesDone)
}

func TestEncodeCodecFailure(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("a", []byte("data"))

	var buf bytes.Buffer
	err := Encode(a, &buf, EncodeWithCodec(failingCodec{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.ErrorIs(t, err, errCodecBroken)
	assert.Zero(t, buf.Len())
}

var errWriteFailed = errors.New("write failed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errWriteFailed }

func TestEncodeWriteFailure(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("random", testutil.RandomBytes(200000, 9))
	err := Encode(a, failingWriter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Zero(t, a.DeclaredTotalSize)
}

func TestPlanDoesNotReorder(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("large", []byte("large entry"))
	a.Add("small", []byte("s"))

	layout, err := Plan(a)
	require.NoError(t, err)
	assert.Equal(t, "large", a.Entries[0].Name)
	require.Len(t, layout.Records, 2)
	assert.Equal(t, "small", layout.Records[0].Name)

	data := encode(t, a)
	inspected, _, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, layout, inspected)
}

func TestEncodeRejectsNULInName(t *testing.T) {
	t.Parallel()

	a := &Archive{}
	a.Add("fine", []byte("ok"))
	a.Add("bad\x00name", []byte("x"))

	var buf bytes.Buffer
	err := Encode(a, &buf)
	require.ErrorIs(t, err, ErrEncoding)
	assert.NotErrorIs(t, err, ErrNameTooLong)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, 1, entryErr.Index)
	assert.Zero(t, buf.Len())
}
