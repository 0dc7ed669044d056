package transform

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/xrash/smetrics"
)

// DefaultSimilarityThreshold is the score at which two keys are the same key.
const DefaultSimilarityThreshold = 90

const vocabularyVersion = 1

// Similarity scores two keys from 0 to 100, ignoring case. It is the
// indel-weighted edit ratio: substitutions cost two, so the score is
// 100 * matching characters / total characters.
func Similarity(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	distance := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return 100 * (total - distance) / total
}

// KeyRegistry is the vocabulary of canonical requirement keys.
//
// A raw key is compared against canonical keys only, never against other
// raw spellings, so merges cannot chain. The best-scoring canonical key at
// or above the threshold wins; ties go to the key registered first. Every
// raw key is memoized, so once seen it resolves the same way for the life
// of the registry. Safe for concurrent use.
type KeyRegistry struct {
	mu        sync.Mutex
	threshold int
	keys      []string
	memo      map[string]string
}

// NewKeyRegistry creates an empty registry. A threshold <= 0 selects
// DefaultSimilarityThreshold.
func NewKeyRegistry(threshold int) *KeyRegistry {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &KeyRegistry{
		threshold: threshold,
		memo:      make(map[string]string),
	}
}

// Threshold returns the similarity score at which keys merge.
func (r *KeyRegistry) Threshold() int {
	return r.threshold
}

// Canonical returns the canonical key for raw, registering raw as a new
// canonical key when nothing similar is known.
func (r *KeyRegistry) Canonical(raw string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.memo[raw]; ok {
		return key
	}

	best, bestScore := "", -1
	for _, key := range r.keys {
		if score := Similarity(raw, key); score > bestScore {
			best, bestScore = key, score
		}
	}
	if bestScore < r.threshold {
		r.keys = append(r.keys, raw)
		best = raw
	}
	r.memo[raw] = best
	return best
}

// Keys returns the canonical keys in registration order.
func (r *KeyRegistry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

// Len returns the number of canonical keys.
func (r *KeyRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

type vocabularyFile struct {
	Version   int      `json:"version"`
	Threshold int      `json:"threshold"`
	Keys      []string `json:"keys"`
}

// Save writes the vocabulary so a later run can extend it instead of
// rebuilding it.
func (r *KeyRegistry) Save(path string) error {
	r.mu.Lock()
	v := vocabularyFile{
		Version:   vocabularyVersion,
		Threshold: r.threshold,
		Keys:      append([]string(nil), r.keys...),
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadKeyRegistry seeds a registry from a saved vocabulary. A missing file
// yields an empty registry with the given threshold.
func LoadKeyRegistry(path string, threshold int) (*KeyRegistry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewKeyRegistry(threshold), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var v vocabularyFile
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}
	if v.Version != vocabularyVersion {
		return nil, fmt.Errorf("%w: vocabulary version %d", ErrVocabularyVersion, v.Version)
	}

	if threshold <= 0 {
		threshold = v.Threshold
	}
	r := NewKeyRegistry(threshold)
	for _, key := range v.Keys {
		r.keys = append(r.keys, key)
		r.memo[key] = key
	}
	return r, nil
}
