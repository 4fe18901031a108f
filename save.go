package lzarc

import (
	"fmt"
	"os"
	"path/filepath"
)

// Save encodes the archive to path.
//
// Uses atomic writes (temp file + rename) so a failed encode never leaves a
// partial archive at path. Parent directories are created as needed.
// Like Encode, Save reorders a.Entries.
func (a *Archive) Save(path string, opts ...EncodeOption) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lzarc-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := Encode(a, tmp, opts...); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
