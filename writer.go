package lzarc

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/lzarc/internal/sizing"
)

// Encode serializes a to w.
//
// Encode first sorts a.Entries in place by ascending data length (stable on
// ties), matching the reference tooling; callers must not rely on any other
// order surviving. It then compresses every entry, computes the layout, and
// writes header, table, padding, and payloads in one pass. Names longer than
// MaxNameLen fail with ErrNameTooLong, and names containing a NUL byte with
// ErrEncoding, before the archive is reordered or any byte reaches w.
//
// On success a.DeclaredTotalSize and a.AlignedTotalSize hold the values
// written to the header.
func Encode(a *Archive, w io.Writer, opts ...EncodeOption) error {
	e := &encoder{cfg: newEncodeConfig(opts)}
	layout, payloads, err := e.prepare(a)
	if err != nil {
		return err
	}
	if err := e.write(w, layout, payloads); err != nil {
		return err
	}
	a.DeclaredTotalSize = layout.Header.DeclaredTotalSize
	a.AlignedTotalSize = layout.Header.AlignedTotalSize
	return nil
}

// Plan returns the layout Encode would write for a, without writing it
// and without reordering a.
func Plan(a *Archive, opts ...EncodeOption) (*Layout, error) {
	e := &encoder{cfg: newEncodeConfig(opts)}
	clone := &Archive{Entries: slices.Clone(a.Entries)}
	layout, _, err := e.prepare(clone)
	return layout, err
}

type encoder struct {
	cfg encodeConfig
}

func (e *encoder) log() *slog.Logger {
	return discardLogger(e.cfg.logger)
}

func (e *encoder) reportProgress(stage ProgressStage, name string, bytesDone, bytesTotal uint64, filesDone, filesTotal int) {
	if e.cfg.progress == nil {
		return
	}
	e.cfg.progress(ProgressEvent{
		Stage:      stage,
		Name:       name,
		BytesDone:  bytesDone,
		BytesTotal: bytesTotal,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}

// prepare validates, sorts, compresses, and lays out a.
func (e *encoder) prepare(a *Archive) (*Layout, [][]byte, error) {
	if err := validateArchive(a); err != nil {
		return nil, nil, err
	}

	slices.SortStableFunc(a.Entries, func(x, y FileEntry) int {
		return cmp.Compare(len(x.Data), len(y.Data))
	})

	e.log().Debug("encoding archive", "entries", len(a.Entries), "codec", e.cfg.codec.Name(), "concurrency", e.cfg.concurrency)

	payloads, err := e.compressAll(a.Entries)
	if err != nil {
		return nil, nil, err
	}
	layout, err := buildLayout(a.Entries, payloads)
	if err != nil {
		return nil, nil, err
	}
	return layout, payloads, nil
}

// validateArchive rejects archives that cannot be represented in the format.
func validateArchive(a *Archive) error {
	if uint64(len(a.Entries)) > (math.MaxUint32-HeaderSize)/RecordSize {
		return fmt.Errorf("%w: %d entries do not fit the table", ErrSizeOverflow, len(a.Entries))
	}
	for i, entry := range a.Entries {
		if len(entry.Name) > MaxNameLen {
			return &EntryError{Index: i, Name: entry.Name, Err: fmt.Errorf("%w: %d bytes, limit is %d", ErrNameTooLong, len(entry.Name), MaxNameLen)}
		}
		if strings.IndexByte(entry.Name, 0) >= 0 {
			return &EntryError{Index: i, Name: entry.Name, Err: fmt.Errorf("%w: name contains a NUL byte", ErrEncoding)}
		}
		if _, err := sizing.ToUint32(len(entry.Data), ErrSizeOverflow); err != nil {
			return &EntryError{Index: i, Name: entry.Name, Err: err}
		}
	}
	return nil
}

// compressAll returns the framed payload of every entry, in entry order.
func (e *encoder) compressAll(entries []FileEntry) ([][]byte, error) {
	payloads := make([][]byte, len(entries))
	var total uint64
	for _, entry := range entries {
		total += uint64(len(entry.Data))
	}

	var bytesDone atomic.Uint64
	var filesDone atomic.Int64
	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(e.cfg.concurrency)
	for i, entry := range entries {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			framed, err := frame(e.cfg.codec, entry.Data)
			if err != nil {
				return &EntryError{Index: i, Name: entry.Name, Err: err}
			}
			payloads[i] = framed
			done := bytesDone.Add(uint64(len(entry.Data)))
			e.reportProgress(StageCompressing, entry.Name, done, total, int(filesDone.Add(1)), len(entries))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

// frame compresses data and prefixes the frame header: the tag byte and the
// low three bytes of the uncompressed length, little-endian.
func frame(c Codec, data []byte) ([]byte, error) {
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: compress with %s: %w", ErrEncoding, c.Name(), err)
	}
	n := len(data)
	framed := make([]byte, 0, FrameHeaderSize+len(compressed))
	framed = append(framed, FrameTag, byte(n), byte(n>>8), byte(n>>16))
	return append(framed, compressed...), nil
}

// buildLayout assigns payload offsets and memory-image offsets in entry
// order. Payloads start on a 64-byte boundary after the table and are each
// padded to the next 64 bytes; memory-image offsets start at 8 KiB and
// advance by the entry size plus 8 KiB, rounded up to 8 KiB.
func buildLayout(entries []FileEntry, payloads [][]byte) (*Layout, error) {
	count := len(entries)
	start, ok := sizing.AlignUint32(uint32(tableEnd(uint64(count))), DataAlignment) //nolint:gosec // bounded by validateArchive
	if !ok {
		return nil, fmt.Errorf("%w: table end", ErrSizeOverflow)
	}

	cursor := start
	mem := uint64(MemoryAlignment)
	records := make([]Record, count)
	for i, entry := range entries {
		size := uint32(len(entry.Data)) //nolint:gosec // bounded by validateArchive
		compressed, err := sizing.ToUint32(len(payloads[i]), ErrSizeOverflow)
		if err != nil {
			return nil, &EntryError{Index: i, Name: entry.Name, Err: err}
		}
		if mem > math.MaxUint32 {
			return nil, &EntryError{Index: i, Name: entry.Name, Err: fmt.Errorf("%w: memory image offset", ErrSizeOverflow)}
		}
		records[i] = Record{
			Name:             entry.Name,
			DataPos:          cursor,
			CompressedSize:   compressed,
			AlignedPos:       uint32(mem),
			SizeHint:         size,
			UncompressedSize: size,
		}

		end, ok := sizing.AddUint32(cursor, compressed)
		if ok {
			end, ok = sizing.AlignUint32(end, DataAlignment)
		}
		if !ok {
			return nil, &EntryError{Index: i, Name: entry.Name, Offset: int64(cursor), Err: fmt.Errorf("%w: archive exceeds 4 GiB", ErrSizeOverflow)}
		}
		cursor = end
		mem += AlignUp(uint64(size)+MemoryAlignment, MemoryAlignment)
	}
	if mem > math.MaxUint32 {
		return nil, fmt.Errorf("%w: memory image size", ErrSizeOverflow)
	}

	return &Layout{
		Header: Header{
			DeclaredTotalSize: cursor,
			AlignedTotalSize:  uint32(mem),
			EntryCount:        uint32(count), //nolint:gosec // bounded by validateArchive
		},
		Records: records,
	}, nil
}

// write emits the archive described by layout.
func (e *encoder) write(w io.Writer, layout *Layout, payloads [][]byte) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	table := make([]byte, 0, layout.StartOfData())
	table = layout.Header.appendTo(table)
	for _, rec := range layout.Records {
		table = rec.appendTo(table)
	}
	table = append(table, make([]byte, layout.StartOfData()-layout.TableEnd())...)
	if _, err := bw.Write(table); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	var pad [DataAlignment]byte
	var written uint64
	for i, payload := range payloads {
		if _, err := bw.Write(payload); err != nil {
			return &EntryError{Index: i, Name: layout.Records[i].Name, Offset: int64(layout.Records[i].DataPos), Err: fmt.Errorf("write payload: %w", err)}
		}
		n := AlignUp(uint64(len(payload)), DataAlignment) - uint64(len(payload))
		if _, err := bw.Write(pad[:n]); err != nil {
			return &EntryError{Index: i, Name: layout.Records[i].Name, Offset: int64(layout.Records[i].DataPos), Err: fmt.Errorf("write padding: %w", err)}
		}
		written += uint64(layout.Records[i].UncompressedSize)
		e.reportProgress(StageWriting, layout.Records[i].Name, written, 0, i+1, len(payloads))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	e.log().Debug("archive encoded", "entries", len(payloads), "size", layout.Header.DeclaredTotalSize, "aligned_size", layout.Header.AlignedTotalSize)
	return nil
}
