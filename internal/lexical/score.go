package lexical

import "strings"

// Scoring weights. Phrases outweigh tokens by an order of magnitude so that an
// exact technical term beats a document that merely repeats common words.
const (
	PhraseWeight    = 10.0
	TokenWeight     = 1.0
	DiversityWeight = 2.0

	// MinDiverseTokens is the number of distinct matched tokens that earns the bonus
	MinDiverseTokens = 2
)

// Score is the relevance of one document for one query
type Score struct {
	Value   float64
	Matched []string // Phrases in extraction order, then tokens in query order
}

// Score computes the relevance of a document whose text has already been
// lower-cased with Lower.
//
// Each phrase adds PhraseWeight per non-overlapping occurrence, each token adds
// TokenWeight per occurrence, and when at least MinDiverseTokens distinct tokens
// matched the score gains DiversityWeight per distinct token.
func (q Query) Score(lowerText string) Score {
	var s Score

	for _, phrase := range q.Phrases {
		if n := countTerm(lowerText, phrase); n > 0 {
			s.Value += float64(n) * PhraseWeight
			s.Matched = append(s.Matched, phrase)
		}
	}

	distinct := 0
	for _, token := range q.Tokens {
		if n := countTerm(lowerText, token); n > 0 {
			s.Value += float64(n) * TokenWeight
			s.Matched = append(s.Matched, token)
			distinct++
		}
	}

	if distinct >= MinDiverseTokens {
		s.Value += float64(distinct) * DiversityWeight
	}

	return s
}

// countTerm counts non-overlapping occurrences; an empty term never matches
func countTerm(text, term string) int {
	if term == "" {
		return 0
	}
	return strings.Count(text, term)
}
