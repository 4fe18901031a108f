// Package testutil provides helpers for building archive fixtures in tests.
package testutil

import (
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// RandomBytes returns n pseudo-random bytes. The same seed always yields the
// same bytes.
func RandomBytes(n int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // test data
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rng.Uint32())
	}
	return buf
}

// CompressibleBytes returns n bytes of repetitive text.
func CompressibleBytes(n int) []byte {
	const pattern = "the quick brown fox jumps over the lazy dog. "
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = pattern[i%len(pattern)]
	}
	return buf
}

// WriteFiles creates files under dir from a map of slash-separated relative
// path to content.
func WriteFiles(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
	}
}

// LiteralLZ11 encodes data as an LZ11 stream made only of literals.
func LiteralLZ11(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/8+1)
	for i := 0; i < len(data); i += 8 {
		out = append(out, 0)
		out = append(out, data[i:min(i+8, len(data))]...)
	}
	return out
}

// Frame prefixes payload with the container frame header for an entry of
// n decompressed bytes.
func Frame(payload []byte, n int) []byte {
	out := []byte{0x13, byte(n), byte(n >> 8), byte(n >> 16)}
	return append(out, payload...)
}

// RawRecord is one table record written verbatim.
type RawRecord struct {
	Name             string
	DataPos          uint32
	CompressedSize   uint32
	AlignedPos       uint32
	SizeHint         uint32
	UncompressedSize uint32

	// NameField, if set, replaces the encoded name field byte for byte.
	NameField []byte
}

// RawArchive describes an archive byte for byte, so tests can build
// layouts the encoder never produces.
type RawArchive struct {
	DeclaredTotalSize uint32
	AlignedTotalSize  uint32

	// EntryCount overrides len(Records) when non-zero.
	EntryCount uint32

	Records []RawRecord

	// Blobs maps absolute offsets to bytes placed there.
	Blobs map[uint32][]byte

	// Size is the minimum length of the result.
	Size int
}

// Bytes serializes the archive. The result is zero-filled wherever nothing
// was placed.
func (r RawArchive) Bytes() []byte {
	n := max(r.Size, 12+len(r.Records)*148)
	for off, b := range r.Blobs {
		n = max(n, int(off)+len(b))
	}
	out := make([]byte, n)

	count := r.EntryCount
	if count == 0 {
		count = uint32(len(r.Records)) //nolint:gosec // test fixture
	}
	binary.BigEndian.PutUint32(out[0:], r.DeclaredTotalSize)
	binary.BigEndian.PutUint32(out[4:], r.AlignedTotalSize)
	binary.BigEndian.PutUint32(out[8:], count)

	for i, rec := range r.Records {
		b := out[12+i*148 : 12+(i+1)*148]
		if rec.NameField != nil {
			copy(b[:128], rec.NameField)
		} else {
			copy(b[:128], rec.Name)
		}
		binary.BigEndian.PutUint32(b[128:], rec.DataPos)
		binary.BigEndian.PutUint32(b[132:], rec.CompressedSize)
		binary.BigEndian.PutUint32(b[136:], rec.AlignedPos)
		binary.BigEndian.PutUint32(b[140:], rec.SizeHint)
		binary.BigEndian.PutUint32(b[144:], rec.UncompressedSize)
	}
	for off, b := range r.Blobs {
		copy(out[off:], b)
	}
	return out
}
