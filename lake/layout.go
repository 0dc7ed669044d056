package lake

import "path/filepath"

// Layout names the files of a data directory.
type Layout struct {
	Root string
}

// BronzeDir holds the staged batch files.
func (l Layout) BronzeDir() string {
	return filepath.Join(l.Root, "bronze", "details")
}

// SilverPath is the single compacted silver file.
func (l Layout) SilverPath() string {
	return filepath.Join(l.Root, "silver", "details.parquet")
}

// GoldPath is the single gold file.
func (l Layout) GoldPath() string {
	return filepath.Join(l.Root, "gold", "details.parquet")
}

// DBDir is the embedded database directory.
func (l Layout) DBDir() string {
	return filepath.Join(l.Root, "db")
}

// CorrectionsPath is the optional label correction table.
func (l Layout) CorrectionsPath() string {
	return filepath.Join(l.Root, "corrections.json")
}

// VocabularyPath is the requirement key vocabulary artifact.
func (l Layout) VocabularyPath() string {
	return filepath.Join(l.Root, "vocabulary.json")
}
