package lake

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/poiesic/gamescout/core"
)

// CanonicalizeReport summarizes one silver run.
type CanonicalizeReport struct {
	Batches    int
	Skipped    int
	Rows       int
	Unique     int
	Duplicates int
	// MissingColumns counts, per column of the union schema, the batches
	// that were written without it.
	MissingColumns map[string]int
}

// Canonicalizer merges every bronze batch into one deduplicated silver file.
type Canonicalizer struct {
	bronze *Bronze
	path   string
	logger *slog.Logger
}

// NewCanonicalizer creates a Canonicalizer writing to silverPath.
// A nil logger means slog.Default().
func NewCanonicalizer(bronze *Bronze, silverPath string, logger *slog.Logger) *Canonicalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Canonicalizer{
		bronze: bronze,
		path:   silverPath,
		logger: logger.With("component", "canonicalizer"),
	}
}

// Run rebuilds the silver dataset from scratch.
//
// The union of all batch schemas is computed first; batches missing a column
// read it as its zero value. Rows are deduplicated by identifier. Batches are
// visited in lexical key order and the first row seen for an identifier is
// kept, which makes the choice deterministic but not "latest": some write
// wins, not necessarily the last one.
func (c *Canonicalizer) Run(ctx context.Context) (*CanonicalizeReport, error) {
	if _, err := c.bronze.Heal(ctx); err != nil {
		return nil, err
	}
	paths, err := c.bronze.Batches()
	if err != nil {
		return nil, err
	}

	report := &CanonicalizeReport{MissingColumns: make(map[string]int)}

	// Superset schema across all batches.
	union := make(map[string]struct{})
	perFile := make(map[string]map[string]struct{}, len(paths))
	readable := make([]string, 0, len(paths))
	for _, path := range paths {
		cols, err := columnNames(path)
		if err != nil {
			c.logger.Warn("skipping unreadable batch", "path", path, "err", err)
			report.Skipped++
			continue
		}
		set := make(map[string]struct{}, len(cols))
		for _, col := range cols {
			set[col] = struct{}{}
			union[col] = struct{}{}
		}
		perFile[path] = set
		readable = append(readable, path)
	}
	for _, path := range readable {
		for col := range union {
			if _, ok := perFile[path][col]; !ok {
				report.MissingColumns[col]++
			}
		}
	}
	if len(report.MissingColumns) > 0 {
		c.logger.Info("batches differ in schema; missing columns read as empty", "columns", report.MissingColumns)
	}

	seen := make(map[int64]struct{})
	var merged []DetailRow
	for _, path := range readable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := c.bronze.ReadBatch(path)
		if err != nil {
			c.logger.Warn("skipping unreadable batch", "path", path, "err", err)
			report.Skipped++
			continue
		}
		report.Batches++
		for _, row := range rows {
			report.Rows++
			if _, dup := seen[row.AppID]; dup {
				report.Duplicates++
				continue
			}
			seen[row.AppID] = struct{}{}
			merged = append(merged, row)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].AppID < merged[j].AppID })
	report.Unique = len(merged)

	if err := writeAtomic(c.path, merged); err != nil {
		return nil, fmt.Errorf("failed to write silver dataset: %w", err)
	}

	c.logger.Info("silver dataset written", "path", c.path, "batches", report.Batches, "rows", report.Rows, "unique", report.Unique, "duplicates", report.Duplicates)
	return report, nil
}

// ReadSilver loads the silver dataset as staged details ordered by identifier.
func ReadSilver(path string) ([]core.StagedDetail, error) {
	rows, err := readRows[DetailRow](path)
	if err != nil {
		return nil, err
	}
	details := make([]core.StagedDetail, 0, len(rows))
	for _, row := range rows {
		s, err := row.Staged()
		if err != nil {
			return nil, err
		}
		details = append(details, s)
	}
	return details, nil
}
