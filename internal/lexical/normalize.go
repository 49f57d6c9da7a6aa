package lexical

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// minTokenLen is the rune length a query word must exceed to become a token
	minTokenLen = 2
	// minPhraseLen is the rune length a phrase must exceed to be kept
	minPhraseLen = 3
	// maxPhraseWords bounds how many space-separated words form one phrase
	maxPhraseWords = 3
)

// stopWords is the closed set of function words dropped from the token set.
// Words of length <= minTokenLen are dropped regardless, so they are omitted here.
var stopWords = map[string]struct{}{
	"как": {}, "что": {}, "где": {}, "когда": {}, "для": {}, "или": {},
	"это": {}, "эта": {}, "этот": {},
	"and": {}, "for": {}, "this": {}, "that": {}, "what": {}, "how": {},
	"where": {}, "when": {}, "with": {},
}

// Query is a normalized search query
type Query struct {
	Normalized string   // Lower-cased, trimmed query text
	Tokens     []string // Never empty
	Phrases    []string // Extraction order
}

// Lower lower-cases s rune by rune, so the result has exactly as many runes as s.
// Snippet offsets computed on the lowered text are therefore valid on the original.
func Lower(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// Normalize turns a raw query into tokens and phrases.
//
// If stop-word filtering removes every word, the token set falls back to the
// whole normalized query so that scoring never runs on an empty token set.
func Normalize(raw string) Query {
	q := Lower(strings.TrimSpace(raw))

	var tokens []string
	for _, word := range strings.Fields(q) {
		if utf8.RuneCountInString(word) <= minTokenLen {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
	}
	if len(tokens) == 0 {
		tokens = []string{q}
	}

	return Query{
		Normalized: q,
		Tokens:     tokens,
		Phrases:    extractPhrases(q),
	}
}

// extractPhrases finds runs of 1-3 whitespace-separated ASCII words that start
// with a letter and sit on word boundaries. Matches are non-overlapping and
// leftmost-first; a run is kept only when it is longer than minPhraseLen.
func extractPhrases(q string) []string {
	rs := []rune(q)
	var phrases []string

	for i := 0; i < len(rs); {
		if isASCIILower(rs[i]) && (i == 0 || !isWordRune(rs[i-1])) {
			if end := matchPhrase(rs, i, maxPhraseWords-1); end > 0 {
				if end-i > minPhraseLen {
					phrases = append(phrases, string(rs[i:end]))
				}
				i = end
				continue
			}
		}
		i++
	}

	return phrases
}

// matchPhrase matches one word starting at start followed by up to extra more
// words, preferring the longest word and the most words first. It returns the
// end offset of the match or -1 when no end lands on a word boundary.
func matchPhrase(rs []rune, start, extra int) int {
	maxEnd := start + 1
	for maxEnd < len(rs) && isPhraseRune(rs[maxEnd]) {
		maxEnd++
	}

	for end := maxEnd; end > start; end-- {
		if extra > 0 {
			next := end
			for next < len(rs) && unicode.IsSpace(rs[next]) {
				next++
			}
			if next > end && next < len(rs) && isASCIILower(rs[next]) {
				if e := matchPhrase(rs, next, extra-1); e >= 0 {
					return e
				}
			}
		}
		if isBoundary(rs, end) {
			return end
		}
	}

	return -1
}

func isBoundary(rs []rune, pos int) bool {
	left := pos > 0 && isWordRune(rs[pos-1])
	right := pos < len(rs) && isWordRune(rs[pos])
	return left != right
}

func isASCIILower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isPhraseRune(r rune) bool {
	return isASCIILower(r) || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}
