package lzarc

// Layout constants.
const (
	// HeaderSize is the size of the archive header.
	HeaderSize = 0xc

	// RecordSize is the size of one entry table record.
	RecordSize = 0x94

	// NameFieldSize is the size of the NUL-padded name field in a record.
	NameFieldSize = 0x80

	// MaxNameLen is the longest name that fits the name field with its
	// terminator.
	MaxNameLen = NameFieldSize - 1

	// DataAlignment is the alignment of the payload region and of each
	// padded payload.
	DataAlignment = 0x40

	// MemoryAlignment is the granularity of the memory-image layout.
	MemoryAlignment = 0x2000

	// FrameHeaderSize is the size of the header prefixed to each payload.
	FrameHeaderSize = 4

	// FrameTag is the first byte of every payload frame.
	FrameTag = 0x13
)

// Archive is an in-memory lzarc container.
type Archive struct {
	// DeclaredTotalSize is the serialized length of the archive as last
	// written. Encode recomputes it.
	DeclaredTotalSize uint32

	// AlignedTotalSize is the size of the 8 KiB-aligned memory image. It is
	// at least MemoryAlignment. Encode recomputes it; Decode only records it.
	AlignedTotalSize uint32

	// Entries holds the files in table order. Names need not be unique.
	Entries []FileEntry
}

// FileEntry is a named file in the archive.
type FileEntry struct {
	// Name is the path-like identifier, at most MaxNameLen bytes.
	Name string

	// Data is the decompressed content.
	Data []byte
}

// Add appends a file to the archive.
func (a *Archive) Add(name string, data []byte) {
	a.Entries = append(a.Entries, FileEntry{Name: name, Data: data})
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.Entries)
}

// Find returns the first entry with the given name.
func (a *Archive) Find(name string) (FileEntry, bool) {
	for _, e := range a.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return FileEntry{}, false
}

// TotalSize returns the sum of all decompressed entry sizes.
func (a *Archive) TotalSize() uint64 {
	var total uint64
	for _, e := range a.Entries {
		total += uint64(len(e.Data))
	}
	return total
}

// AlignUp returns the smallest multiple of to that is >= x.
// to must be a power of two.
func AlignUp(x, to uint64) uint64 {
	return (x + (to - 1)) &^ (to - 1)
}
