package transform

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms end the current line of visible text.
var blockAtoms = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Table: true, atom.Blockquote: true, atom.Hr: true, atom.Pre: true,
	atom.Section: true, atom.Article: true,
}

// hiddenAtoms never contribute visible text.
var hiddenAtoms = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
}

// ExtractLines returns the visible text of an HTML fragment split at block
// boundaries. Entities are decoded, runs of whitespace collapse to one space
// and empty lines are dropped.
func ExtractLines(fragment string) []string {
	if fragment == "" {
		return nil
	}

	var (
		lines   []string
		current strings.Builder
		hidden  int
	)
	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far stands.
			flush()
			return lines
		case html.TextToken:
			if hidden == 0 {
				current.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hiddenAtoms[a] && tt == html.StartTagToken {
				hidden++
			}
			if blockAtoms[a] {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hiddenAtoms[a] && hidden > 0 {
				hidden--
			}
			if blockAtoms[a] {
				flush()
			}
		}
	}
}

// StripHTML returns only the visible text of an HTML fragment, one line per
// block element.
func StripHTML(fragment string) string {
	return strings.Join(ExtractLines(fragment), "\n")
}
