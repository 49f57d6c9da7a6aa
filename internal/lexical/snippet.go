package lexical

import (
	"strings"
	"unicode/utf8"
)

// Window controls how a snippet is cut out of a document
type Window struct {
	Radius           int  // Runes taken on each side of the anchor
	CollapseNewlines bool // Replace "\n" with a space
	Trim             bool // Trim leading and trailing whitespace
	FallbackPrefix   int  // Prefix length for fallback snippets (default 2*Radius)
}

var (
	// PathWindow is used for path-addressed project documentation
	PathWindow = Window{Radius: 80, CollapseNewlines: true}
	// RecordWindow is used for record store documents
	RecordWindow = Window{Radius: 200, Trim: true}
)

// Extract returns the excerpt of text around the first occurrence of the first
// matched term that occurs in lowerText. Without any occurrence the window is
// anchored at the start of the text.
func (w Window) Extract(text, lowerText string, matched []string) string {
	anchor := 0
	for _, term := range matched {
		if term == "" {
			continue
		}
		if idx := strings.Index(lowerText, term); idx >= 0 {
			anchor = utf8.RuneCountInString(lowerText[:idx])
			break
		}
	}

	runes := []rune(text)
	start := max(0, anchor-w.Radius)
	end := min(len(runes), anchor+w.Radius)
	if start >= end {
		return ""
	}

	return w.finish(string(runes[start:end]))
}

// Prefix returns the fallback snippet: a fixed-length prefix of text
func (w Window) Prefix(text string) string {
	n := w.FallbackPrefix
	if n <= 0 {
		n = 2 * w.Radius
	}

	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}

	return w.finish(string(runes))
}

func (w Window) finish(s string) string {
	if w.CollapseNewlines {
		s = strings.ReplaceAll(s, "\n", " ")
	}
	if w.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}
