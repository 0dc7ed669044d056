package transform

import (
	"strings"

	"github.com/poiesic/gamescout/core"
)

// maxKeyLength rejects prose that happens to contain a colon.
const maxKeyLength = 40

// sectionHeaders are the level labels that open a requirements block.
var sectionHeaders = map[string]bool{
	"minimum":     true,
	"recommended": true,
}

// requirementLine is one visible line of a requirements block, split at its
// first colon. ok is false when the line is not key: value shaped.
type requirementLine struct {
	key   string
	value string
	ok    bool
}

func splitRequirementLine(line string) requirementLine {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return requirementLine{}
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" || len(key) > maxKeyLength {
		return requirementLine{}
	}
	return requirementLine{key: key, value: value, ok: true}
}

func isSectionHeader(line string) bool {
	return sectionHeaders[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), ":"))]
}

// RawRequirementKeys returns the unresolved keys of a requirements block in
// the order they appear.
func RawRequirementKeys(fragment string) []string {
	var keys []string
	for _, line := range ExtractLines(fragment) {
		if isSectionHeader(line) {
			continue
		}
		if l := splitRequirementLine(line); l.ok {
			keys = append(keys, l.key)
		}
	}
	return keys
}

// ParseRequirements turns a requirements block into canonical-key fields.
// Lines that are not key: value shaped are joined into core.ExtraKey.
// When two lines resolve to the same canonical key the values are joined.
func ParseRequirements(fragment string, registry *KeyRegistry) map[string]string {
	fields := make(map[string]string)
	var extra []string

	for _, line := range ExtractLines(fragment) {
		if isSectionHeader(line) {
			continue
		}
		l := splitRequirementLine(line)
		if !l.ok {
			extra = append(extra, line)
			continue
		}
		key := registry.Canonical(l.key)
		if prev, ok := fields[key]; ok {
			fields[key] = prev + "; " + l.value
			continue
		}
		fields[key] = l.value
	}

	if len(extra) > 0 {
		fields[core.ExtraKey] = strings.Join(extra, " ")
	}
	return fields
}
