package lzarc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/lzarc/internal/sizing"
)

// Open reads and decodes the archive at path.
// The file is closed before Open returns, including on failure.
func Open(path string, opts ...DecodeOption) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := Decode(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return a, nil
}

// DecodeBytes decodes an archive held in memory.
func DecodeBytes(data []byte, opts ...DecodeOption) (*Archive, error) {
	return Decode(bytes.NewReader(data), opts...)
}

// Decode parses the archive in r. The archive must start at offset 0 of r.
//
// Entries are returned in table order. Each payload is read by seeking to
// its offset and back, so payloads may appear in any order relative to the
// table. Decode returns no partial results: any failure aborts the whole
// archive.
//
// Errors wrap ErrFormat for structural problems (including truncation),
// ErrCodec for payloads that fail to decompress, ErrSizeOverflow for entries
// above the size limit, and the underlying error for I/O failures.
// Per-entry failures are reported as *EntryError.
func Decode(r io.ReadSeeker, opts ...DecodeOption) (*Archive, error) {
	d := &decoder{r: r, cfg: newDecodeConfig(opts)}
	return d.decode()
}

type decoder struct {
	r    io.ReadSeeker
	cfg  decodeConfig
	size int64
}

func (d *decoder) log() *slog.Logger {
	return discardLogger(d.cfg.logger)
}

func (d *decoder) reportProgress(name string, bytesDone uint64, filesDone, filesTotal int) {
	if d.cfg.progress == nil {
		return
	}
	d.cfg.progress(ProgressEvent{
		Stage:      StageDecoding,
		Name:       name,
		BytesDone:  bytesDone,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}

func (d *decoder) decode() (*Archive, error) {
	hdr, err := d.readHeader()
	if err != nil {
		return nil, err
	}

	a := &Archive{
		DeclaredTotalSize: hdr.DeclaredTotalSize,
		AlignedTotalSize:  hdr.AlignedTotalSize,
	}
	if hdr.EntryCount == 0 {
		return a, nil
	}

	count := int(hdr.EntryCount)
	a.Entries = make([]FileEntry, 0, count)
	d.log().Debug("decoding archive", "entries", count, "size", d.size, "codec", d.cfg.codec.Name())

	var bytesDone uint64
	rec := make([]byte, RecordSize)
	for i := range count {
		offset := int64(HeaderSize) + int64(i)*RecordSize
		if err := readFull(d.r, rec); err != nil {
			return nil, &EntryError{Index: i, Offset: offset, Err: err}
		}
		r, err := parseRecord(rec)
		if err != nil {
			return nil, &EntryError{Index: i, Offset: offset, Err: err}
		}
		data, err := d.readEntry(r)
		if err != nil {
			return nil, &EntryError{Index: i, Name: r.Name, Offset: int64(r.DataPos), Err: err}
		}
		a.Entries = append(a.Entries, FileEntry{Name: r.Name, Data: data})
		bytesDone += uint64(len(data))
		d.reportProgress(r.Name, bytesDone, i+1, count)
	}

	d.log().Debug("archive decoded", "entries", count, "bytes", bytesDone)
	return a, nil
}

// readHeader sizes the stream, reads the header, and checks that the entry
// table fits before anything is allocated for it.
func (d *decoder) readHeader() (Header, error) {
	size, err := d.r.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, err
	}
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return Header{}, err
	}
	d.size = size

	var buf [HeaderSize]byte
	if err := readFull(d.r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	hdr := parseHeader(buf[:])

	if end := tableEnd(uint64(hdr.EntryCount)); end > uint64(size) {
		return Header{}, fmt.Errorf("%w: table of %d entries ends at %#x, past end of stream at %#x", ErrFormat, hdr.EntryCount, end, size)
	}
	return hdr, nil
}

// readEntry reads and decompresses one payload, leaving the stream
// positioned where it was so the table scan can continue.
func (d *decoder) readEntry(r Record) ([]byte, error) {
	if d.cfg.strictSizes && r.SizeHint != r.UncompressedSize {
		return nil, fmt.Errorf("%w: size words disagree (%d != %d)", ErrFormat, r.SizeHint, r.UncompressedSize)
	}
	if r.CompressedSize == 0 {
		return []byte{}, nil
	}
	if r.CompressedSize < FrameHeaderSize {
		return nil, fmt.Errorf("%w: payload of %d bytes is shorter than its frame header", ErrFormat, r.CompressedSize)
	}
	if !sizing.FitsWithin(uint64(r.DataPos), uint64(r.CompressedSize), d.size) {
		return nil, fmt.Errorf("%w: payload [%#x, %#x) ends past end of stream at %#x", ErrFormat, r.DataPos, r.End(), d.size)
	}
	if d.cfg.maxEntrySize > 0 && uint64(r.UncompressedSize) > d.cfg.maxEntrySize {
		return nil, fmt.Errorf("%w: entry of %d bytes exceeds limit of %d", ErrSizeOverflow, r.UncompressedSize, d.cfg.maxEntrySize)
	}
	n, err := sizing.ToInt(uint64(r.UncompressedSize), ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	payload, err := d.readAt(int64(r.DataPos), int(r.CompressedSize))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}

	data, err := d.cfg.codec.Decompress(payload[FrameHeaderSize:], n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %s produced %d bytes, expected %d", ErrCodec, d.cfg.codec.Name(), len(data), n)
	}
	return data, nil
}

// readAt reads n bytes at off and restores the stream position.
func (d *decoder) readAt(off int64, n int) ([]byte, error) {
	saved, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if _, err := d.r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := readFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if _, err := d.r.Seek(saved, io.SeekStart); err != nil {
		return nil, err
	}
	return buf, nil
}

// readFull is io.ReadFull with short reads reported as format errors.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrFormat, io.ErrUnexpectedEOF)
	}
	return err
}
