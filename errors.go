package lzarc

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrFormat is returned when an archive is structurally invalid: a short
	// header, a truncated table, a name field without a terminator, or a
	// payload that points outside the stream.
	ErrFormat = errors.New("lzarc: invalid archive format")

	// ErrCodec is returned when a payload fails to decompress or does not
	// reconstruct its declared length.
	ErrCodec = errors.New("lzarc: codec failure")

	// ErrEncoding is returned when an archive cannot be serialized.
	ErrEncoding = errors.New("lzarc: encoding failed")

	// ErrNameTooLong is returned when an entry name does not fit the
	// 128-byte name field with its terminator. It wraps ErrEncoding.
	ErrNameTooLong = fmt.Errorf("%w: name too long", ErrEncoding)

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("lzarc: size overflow")

	// ErrTooManyFiles is returned when the file count exceeds the configured limit.
	ErrTooManyFiles = errors.New("lzarc: too many files")
)

// EntryError describes a failure tied to a single table entry.
type EntryError struct {
	// Index is the position of the entry in table order.
	Index int

	// Name is the entry name, if it was decoded before the failure.
	Name string

	// Offset is the byte offset in the archive where the failing read or
	// write was attempted.
	Offset int64

	// Err is the underlying error.
	Err error
}

func (e *EntryError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("entry %d at offset %#x: %v", e.Index, e.Offset, e.Err)
	}
	return fmt.Sprintf("entry %d (%q) at offset %#x: %v", e.Index, e.Name, e.Offset, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// ValidationError describes why an entry name cannot be used as a path.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry name %q: %s", e.Name, e.Reason)
}
