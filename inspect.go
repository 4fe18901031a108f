package lzarc

import (
	"fmt"
	"io"
	"os"
)

// Inspect reads the header and entry table of the archive in r without
// reading or decompressing any payload. It also returns the stream size,
// for use with Layout.Validate.
func Inspect(r io.ReadSeeker) (*Layout, int64, error) {
	d := &decoder{r: r}
	hdr, err := d.readHeader()
	if err != nil {
		return nil, 0, err
	}

	layout := &Layout{Header: hdr, Records: make([]Record, 0, hdr.EntryCount)}
	buf := make([]byte, RecordSize)
	for i := range int(hdr.EntryCount) {
		offset := int64(HeaderSize) + int64(i)*RecordSize
		if err := readFull(r, buf); err != nil {
			return nil, 0, &EntryError{Index: i, Offset: offset, Err: err}
		}
		rec, err := parseRecord(buf)
		if err != nil {
			return nil, 0, &EntryError{Index: i, Offset: offset, Err: err}
		}
		layout.Records = append(layout.Records, rec)
	}
	return layout, d.size, nil
}

// InspectFile is Inspect for the archive at path.
func InspectFile(path string) (*Layout, int64, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	layout, size, err := Inspect(f)
	if err != nil {
		return nil, 0, fmt.Errorf("inspect %s: %w", path, err)
	}
	return layout, size, nil
}

// CompressedSize returns the sum of all unpadded payload sizes.
func (l *Layout) CompressedSize() uint64 {
	var total uint64
	for _, rec := range l.Records {
		total += uint64(rec.CompressedSize)
	}
	return total
}

// UncompressedSize returns the sum of all declared decompressed sizes.
func (l *Layout) UncompressedSize() uint64 {
	var total uint64
	for _, rec := range l.Records {
		total += uint64(rec.UncompressedSize)
	}
	return total
}

// CompressionRatio returns compressed bytes over uncompressed bytes, or 0
// for an archive with no content.
func (l *Layout) CompressionRatio() float64 {
	u := l.UncompressedSize()
	if u == 0 {
		return 0
	}
	return float64(l.CompressedSize()) / float64(u)
}
