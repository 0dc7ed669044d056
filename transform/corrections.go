package transform

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// CorrectionTable maps raw category and genre labels to canonical labels.
// It is immutable once built.
type CorrectionTable struct {
	entries map[string]string
}

// NewCorrectionTable builds a table from raw → canonical entries.
func NewCorrectionTable(entries map[string]string) *CorrectionTable {
	copied := make(map[string]string, len(entries))
	for raw, canonical := range entries {
		copied[raw] = canonical
	}
	return &CorrectionTable{entries: copied}
}

// IdentityCorrectionTable maps every given label to itself.
func IdentityCorrectionTable(labels []string) *CorrectionTable {
	entries := make(map[string]string, len(labels))
	for _, l := range labels {
		entries[l] = l
	}
	return &CorrectionTable{entries: entries}
}

// LoadCorrectionTable reads a JSON object of "raw label": "canonical label".
func LoadCorrectionTable(path string) (*CorrectionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read correction table: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse correction table %s: %w", path, err)
	}
	return &CorrectionTable{entries: entries}, nil
}

// Lookup returns the canonical label for raw by exact match.
func (t *CorrectionTable) Lookup(raw string) (string, bool) {
	canonical, ok := t.entries[raw]
	return canonical, ok
}

// Len returns the number of entries.
func (t *CorrectionTable) Len() int {
	return len(t.entries)
}

// Correct rewrites labels through the table. Labels without an entry are
// returned as misses and left out of the result. Duplicates after
// correction are removed; order is preserved.
func (t *CorrectionTable) Correct(labels []string) (corrected []string, misses []string) {
	seen := make(map[string]struct{}, len(labels))
	for _, raw := range labels {
		canonical, ok := t.entries[raw]
		if !ok {
			misses = append(misses, raw)
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		corrected = append(corrected, canonical)
	}
	return corrected, misses
}

// Canonical returns the distinct canonical labels, sorted.
func (t *CorrectionTable) Canonical() []string {
	set := make(map[string]struct{}, len(t.entries))
	for _, c := range t.entries {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
