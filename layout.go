package lzarc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meigma/lzarc/internal/sizing"
)

// Header is the fixed 12-byte archive header.
type Header struct {
	DeclaredTotalSize uint32
	AlignedTotalSize  uint32
	EntryCount        uint32
}

func (h Header) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, h.DeclaredTotalSize)
	b = binary.BigEndian.AppendUint32(b, h.AlignedTotalSize)
	return binary.BigEndian.AppendUint32(b, h.EntryCount)
}

func parseHeader(b []byte) Header {
	return Header{
		DeclaredTotalSize: binary.BigEndian.Uint32(b[0:4]),
		AlignedTotalSize:  binary.BigEndian.Uint32(b[4:8]),
		EntryCount:        binary.BigEndian.Uint32(b[8:12]),
	}
}

// Record is one 148-byte entry table record, exactly as stored.
type Record struct {
	// Name is the decoded name field, trimmed at its terminator.
	Name string

	// DataPos is the offset of the framed payload from the archive start.
	DataPos uint32

	// CompressedSize is the framed payload length, excluding padding.
	CompressedSize uint32

	// AlignedPos is the offset of the file in the memory image.
	AlignedPos uint32

	// SizeHint is the first of the two size words. The encoder writes the
	// uncompressed size; older archives may hold something else, so the
	// decoder only compares it when asked to.
	SizeHint uint32

	// UncompressedSize is the decompressed length.
	UncompressedSize uint32
}

// End returns the offset just past the unpadded payload.
func (r Record) End() uint64 {
	return uint64(r.DataPos) + uint64(r.CompressedSize)
}

func (r Record) appendTo(b []byte) []byte {
	var name [NameFieldSize]byte
	copy(name[:], r.Name)
	b = append(b, name[:]...)
	b = binary.BigEndian.AppendUint32(b, r.DataPos)
	b = binary.BigEndian.AppendUint32(b, r.CompressedSize)
	b = binary.BigEndian.AppendUint32(b, r.AlignedPos)
	b = binary.BigEndian.AppendUint32(b, r.SizeHint)
	return binary.BigEndian.AppendUint32(b, r.UncompressedSize)
}

func parseRecord(b []byte) (Record, error) {
	field := b[:NameFieldSize]
	n := bytes.IndexByte(field, 0)
	if n < 0 {
		return Record{}, fmt.Errorf("%w: name field is not NUL-terminated", ErrFormat)
	}
	rest := b[NameFieldSize:]
	return Record{
		Name:             string(field[:n]),
		DataPos:          binary.BigEndian.Uint32(rest[0:4]),
		CompressedSize:   binary.BigEndian.Uint32(rest[4:8]),
		AlignedPos:       binary.BigEndian.Uint32(rest[8:12]),
		SizeHint:         binary.BigEndian.Uint32(rest[12:16]),
		UncompressedSize: binary.BigEndian.Uint32(rest[16:20]),
	}, nil
}

// Layout is the header and entry table of an archive.
type Layout struct {
	Header  Header
	Records []Record
}

// TableEnd returns the offset just past the last table record.
func (l *Layout) TableEnd() uint64 {
	return tableEnd(uint64(len(l.Records)))
}

// StartOfData returns the offset of the payload region.
func (l *Layout) StartOfData() uint64 {
	return AlignUp(l.TableEnd(), DataAlignment)
}

func tableEnd(count uint64) uint64 {
	return HeaderSize + count*RecordSize
}

// Validate checks size, an archive length in bytes, against the invariants
// every archive written by Encode satisfies:
//   - the declared total size equals size
//   - every payload lies within the stream, at or after the payload region
//   - payloads follow each other in table order, each padded to 64 bytes
//   - memory-image positions start at 8 KiB and grow by at least 8 KiB
//
// Archives from other writers may legitimately violate the ordering rules;
// Decode does not call Validate.
func (l *Layout) Validate(size int64) error {
	if int(l.Header.EntryCount) != len(l.Records) {
		return fmt.Errorf("%w: header declares %d entries, table has %d", ErrFormat, l.Header.EntryCount, len(l.Records))
	}
	if int64(l.Header.DeclaredTotalSize) != size {
		return fmt.Errorf("%w: declared size %#x, stream size %#x", ErrFormat, l.Header.DeclaredTotalSize, size)
	}
	if l.Header.AlignedTotalSize < MemoryAlignment {
		return fmt.Errorf("%w: aligned total size %#x below %#x", ErrFormat, l.Header.AlignedTotalSize, MemoryAlignment)
	}

	next := l.StartOfData()
	var prevAligned uint64
	for i, rec := range l.Records {
		if !sizing.FitsWithin(uint64(rec.DataPos), uint64(rec.CompressedSize), size) {
			return &EntryError{Index: i, Name: rec.Name, Offset: int64(rec.DataPos), Err: fmt.Errorf("%w: payload ends past end of stream", ErrFormat)}
		}
		if uint64(rec.DataPos) < next {
			return &EntryError{Index: i, Name: rec.Name, Offset: int64(rec.DataPos), Err: fmt.Errorf("%w: payload overlaps previous data (expected >= %#x)", ErrFormat, next)}
		}
		next = AlignUp(rec.End(), DataAlignment)

		aligned := uint64(rec.AlignedPos)
		if aligned < prevAligned+MemoryAlignment {
			return &EntryError{Index: i, Name: rec.Name, Offset: int64(rec.DataPos), Err: fmt.Errorf("%w: aligned position %#x not %#x past previous %#x", ErrFormat, aligned, MemoryAlignment, prevAligned)}
		}
		prevAligned = aligned
	}
	if uint64(l.Header.AlignedTotalSize) < prevAligned {
		return fmt.Errorf("%w: aligned total size %#x below last aligned position %#x", ErrFormat, l.Header.AlignedTotalSize, prevAligned)
	}
	return nil
}
