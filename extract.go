package lzarc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/lzarc/internal/pathutil"
)

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	skipExisting bool
	workers      int
	logger       *slog.Logger
	progress     ProgressFunc
}

// ExtractWithSkipExisting leaves files that already exist untouched.
// By default, existing files are overwritten.
func ExtractWithSkipExisting(skip bool) ExtractOption {
	return func(c *extractConfig) {
		c.skipExisting = skip
	}
}

// ExtractWithWorkers sets the number of files written concurrently.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithLogger sets a logger for per-file diagnostics.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

// ExtractWithProgress sets a callback invoked after each file is written.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

// ExtractStats contains statistics about an extraction.
type ExtractStats struct {
	// FileCount is the number of files written.
	FileCount int

	// TotalBytes is the number of bytes written.
	TotalBytes uint64

	// Skipped is the number of files left alone because they already existed.
	Skipped int
}

// Extract writes every entry of a to a file under dest, creating parent
// directories as needed.
//
// Names are interpreted as slash-separated relative paths; backslashes are
// accepted as separators. A name that is empty or would resolve outside dest
// fails with *ValidationError before anything is written. When several
// entries share a name, the last one in table order wins.
//
// All writes go through an os.Root opened on dest, so symbolic links already
// present under dest cannot redirect a file outside it.
func Extract(ctx context.Context, a *Archive, dest string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}
	logger := discardLogger(cfg.logger)

	targets, err := extractTargets(a)
	if err != nil {
		return ExtractStats{}, err
	}

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return ExtractStats{}, fmt.Errorf("create destination %s: %w", dest, err)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return ExtractStats{}, fmt.Errorf("open destination root %s: %w", dest, err)
	}
	defer root.Close()

	var (
		mu    sync.Mutex
		stats ExtractStats
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, t := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			written, err := writeTarget(root, t, cfg.skipExisting)
			if err != nil {
				return fmt.Errorf("extract %s: %w", t.entry.Name, err)
			}

			mu.Lock()
			if written {
				stats.FileCount++
				stats.TotalBytes += uint64(len(t.entry.Data))
			} else {
				stats.Skipped++
			}
			event := ProgressEvent{
				Stage:      StageExtracting,
				Name:       t.entry.Name,
				BytesDone:  stats.TotalBytes,
				FilesDone:  stats.FileCount + stats.Skipped,
				FilesTotal: len(targets),
			}
			mu.Unlock()

			if !written {
				logger.Debug("skipped existing file", "path", filepath.Join(dest, t.rel))
			}
			if cfg.progress != nil {
				cfg.progress(event)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	logger.Info("extracted archive", "dest", dest, "files", stats.FileCount, "bytes", stats.TotalBytes, "skipped", stats.Skipped)
	return stats, nil
}

type extractTarget struct {
	entry FileEntry
	rel   string
}

// extractTargets resolves every entry to a path relative to the destination,
// keeping only the last entry for each path.
func extractTargets(a *Archive) ([]extractTarget, error) {
	last := make(map[string]int, len(a.Entries))
	targets := make([]extractTarget, 0, len(a.Entries))
	for _, entry := range a.Entries {
		rel, err := pathutil.Rel(entry.Name)
		if err != nil {
			return nil, &ValidationError{Name: entry.Name, Reason: err.Error()}
		}
		if i, ok := last[rel]; ok {
			targets[i].entry = entry
			continue
		}
		last[rel] = len(targets)
		targets = append(targets, extractTarget{entry: entry, rel: rel})
	}
	return targets, nil
}

// writeTarget writes one file through a temp file in the same directory,
// so a partially written file is never visible at its final path.
// It reports false when the file was skipped.
func writeTarget(root *os.Root, t extractTarget, skipExisting bool) (bool, error) {
	if skipExisting {
		_, err := root.Lstat(t.rel)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	dir := filepath.Dir(t.rel)
	if err := root.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, tmpRel, err := createTempFile(root, dir, ".lzarc-")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(t.entry.Data); err != nil {
		_ = tmp.Close()         //nolint:errcheck // we're cleaning up
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, fmt.Errorf("close temp file: %w", err)
	}
	if err := root.Rename(tmpRel, t.rel); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, fmt.Errorf("rename to %s: %w", t.rel, err)
	}
	return true, nil
}

// createTempFile creates a uniquely named file in dir under root.
func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return nil, "", err
		}
		rel := filepath.Join(dir, prefix+hex.EncodeToString(b[:]))
		f, err := root.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, rel, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}
