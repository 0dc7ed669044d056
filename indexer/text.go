package indexer

import (
	"strings"

	"github.com/poiesic/gamescout/core"
)

// DefaultMaxTextLength caps the embedding source text, in characters.
const DefaultMaxTextLength = 60000

// SourceText builds the text embedded for g: the short description, the
// detailed description and the about text joined by blank lines, cut to
// at most maxLen characters. maxLen <= 0 disables the cap.
func SourceText(g *core.Game, maxLen int) string {
	text := strings.Join([]string{g.ShortDescription, g.DetailedDescription, g.AboutTheGame}, "\n\n")
	if maxLen <= 0 {
		return text
	}
	// Cut on a rune boundary.
	n := 0
	for i := range text {
		if n == maxLen {
			return text[:i]
		}
		n++
	}
	return text
}
