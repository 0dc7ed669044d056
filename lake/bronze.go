package lake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/gamescout/core"
)

const (
	batchPrefix = "batch-"
	batchExt    = ".parquet"
)

// Bronze is the staged store: a directory of write-once batch files, one per
// worker run. Files are never rewritten in place.
type Bronze struct {
	dir    string
	logger *slog.Logger
}

// BronzeOption configures a Bronze store.
type BronzeOption func(*Bronze)

// WithBronzeLogger sets a custom logger.
func WithBronzeLogger(logger *slog.Logger) BronzeOption {
	return func(b *Bronze) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBronze opens the staged store rooted at dir, creating it if needed.
func NewBronze(dir string, opts ...BronzeOption) (*Bronze, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bronze directory %s: %w", dir, err)
	}
	b := &Bronze{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "bronze")
	return b, nil
}

// Dir returns the directory holding the batch files.
func (b *Bronze) Dir() string {
	return b.dir
}

// WriteBatch persists details as one new batch file and returns its key.
// The write is atomic: on failure no file is left behind and the returned
// error wraps ErrPersistFailed.
func (b *Bronze) WriteBatch(ctx context.Context, details []core.StagedDetail) (string, error) {
	if len(details) == 0 {
		return "", ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	rows := make([]DetailRow, 0, len(details))
	for _, d := range details {
		row, err := NewDetailRow(d)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		rows = append(rows, row)
	}

	key := uuid.New().String()
	path := filepath.Join(b.dir, batchPrefix+key+batchExt)
	if err := writeAtomic(path, rows); err != nil {
		return "", fmt.Errorf("%w: batch %s: %v", ErrPersistFailed, key, err)
	}

	b.logger.Debug("wrote batch", "key", key, "rows", len(rows))
	return key, nil
}

// Batches lists the batch files in lexical order.
func (b *Bronze) Batches() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list bronze directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), batchExt) {
			continue
		}
		paths = append(paths, filepath.Join(b.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Heal deletes zero-byte or unreadable batch files and abandoned temporary
// files, returning the paths removed. Identifiers in removed batches become
// pending again.
func (b *Bronze) Heal(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list bronze directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() {
			continue
		}
		path := filepath.Join(b.dir, e.Name())

		switch {
		case strings.HasSuffix(e.Name(), tmpSuffix):
			b.logger.Warn("removing abandoned temp file", "path", path)
		case strings.HasSuffix(e.Name(), batchExt):
			// A readable footer is not enough; every page must decode.
			_, err := b.ReadBatch(path)
			if err == nil {
				continue
			}
			b.logger.Warn("removing corrupt batch", "path", path, "err", err)
		default:
			continue
		}

		if err := removeFile(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// ReadBatch reads every row of one batch file.
func (b *Bronze) ReadBatch(path string) ([]DetailRow, error) {
	return readRows[DetailRow](path)
}

// StagedIDs heals the store and returns every identifier with a staged row.
func (b *Bronze) StagedIDs(ctx context.Context) (map[core.AppID]struct{}, error) {
	if _, err := b.Heal(ctx); err != nil {
		return nil, err
	}

	paths, err := b.Batches()
	if err != nil {
		return nil, err
	}

	staged := make(map[core.AppID]struct{})
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := b.ReadBatch(path)
		if err != nil {
			b.logger.Warn("removing corrupt batch", "path", path, "err", err)
			if err := removeFile(path); err != nil {
				return nil, err
			}
			continue
		}
		for _, r := range rows {
			staged[core.AppID(r.AppID)] = struct{}{}
		}
	}
	return staged, nil
}
