package lzarc

// ProgressEvent represents a progress update during pack, encode, decode, or
// extraction operations.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Name is the entry currently being processed, if applicable.
	Name string

	// BytesDone is the number of decompressed bytes completed so far.
	BytesDone uint64

	// BytesTotal is the total decompressed bytes for the operation.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of entries completed.
	FilesDone int

	// FilesTotal is the total number of entries.
	// Zero indicates the total is unknown (e.g., during enumeration).
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageEnumerating indicates a directory tree is being walked.
	StageEnumerating ProgressStage = iota

	// StageCompressing indicates entry payloads are being compressed.
	StageCompressing

	// StageWriting indicates the archive is being written.
	StageWriting

	// StageDecoding indicates entry payloads are being read and decompressed.
	StageDecoding

	// StageExtracting indicates files are being written to disk.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEnumerating:
		return "enumerating"
	case StageCompressing:
		return "compressing"
	case StageWriting:
		return "writing"
	case StageDecoding:
		return "decoding"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
