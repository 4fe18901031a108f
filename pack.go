package lzarc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/meigma/lzarc/internal/platform"
)

// DefaultMaxFiles is the default limit used when no PackWithMaxFiles option is set.
const DefaultMaxFiles = 200_000

// PackOption configures FromDir.
type PackOption func(*packConfig)

type packConfig struct {
	maxFiles int
	logger   *slog.Logger
	progress ProgressFunc
}

// PackWithMaxFiles limits the number of files included in the archive.
// Zero uses DefaultMaxFiles. Negative means no limit.
func PackWithMaxFiles(n int) PackOption {
	return func(cfg *packConfig) {
		cfg.maxFiles = n
	}
}

// PackWithLogger sets a logger for skipped files and summary information.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}

// PackWithProgress sets a callback invoked once per file read.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}

// FromDir builds an archive from the regular files under dir.
//
// Entry names are slash-separated paths relative to dir, in lexical walk
// order. Empty directories are not preserved. Symbolic links and other
// non-regular files are skipped. Names are not checked here; Encode rejects
// any that are too long.
//
// The context can be used for cancellation of long walks.
func FromDir(ctx context.Context, dir string, opts ...PackOption) (*Archive, error) {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	maxFiles := cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}
	logger := discardLogger(cfg.logger)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	a := &Archive{}
	var total uint64
	err = fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fsPath := filepath.FromSlash(path)
		info, ok, err := platform.ResolveEntryInfo(root, fsPath, d)
		if err != nil {
			return err
		}
		if !ok {
			logger.Debug("skipped non-regular file", "path", path)
			return nil
		}
		if maxFiles > 0 && a.Len() >= maxFiles {
			return ErrTooManyFiles
		}

		data, err := readRegular(root, fsPath, info)
		if errors.Is(err, platform.ErrSymlink) {
			logger.Debug("skipped symlink", "path", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		a.Add(path, data)
		total += uint64(len(data))
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{Stage: StageEnumerating, Name: path, BytesDone: total, FilesDone: a.Len()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("collected files", "dir", dir, "files", a.Len(), "bytes", total)
	return a, nil
}

// readRegular reads a whole regular file without following symlinks.
func readRegular(root *os.Root, fsPath string, info fs.FileInfo) ([]byte, error) {
	if info.Size() > math.MaxUint32 {
		return nil, fmt.Errorf("%w: file of %d bytes", ErrSizeOverflow, info.Size())
	}
	f, err := platform.OpenFileNoFollow(root, fsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !finfo.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", fsPath)
	}

	var buf bytes.Buffer
	buf.Grow(int(finfo.Size()))
	if _, err := buf.ReadFrom(io.LimitReader(f, math.MaxUint32+1)); err != nil {
		return nil, err
	}
	if uint64(buf.Len()) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: file grew past 4 GiB", ErrSizeOverflow)
	}
	return buf.Bytes(), nil
}
