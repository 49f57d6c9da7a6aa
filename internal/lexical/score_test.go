package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_PhraseTokenAndDiversity(t *testing.T) {
	q := Normalize("billing service")
	text := Lower("The billing service handles billing. Billing Service!")

	s := q.Score(text)

	// phrase: 2 x 10, tokens: billing 3 + service 2, diversity: 2 x 2
	assert.Equal(t, 20.0+5.0+4.0, s.Value)
	assert.Equal(t, []string{"billing service", "billing", "service"}, s.Matched)
}

func TestScore_NoMatch(t *testing.T) {
	q := Normalize("kubernetes operator")

	s := q.Score(Lower("Billing service documentation"))

	assert.Equal(t, 0.0, s.Value)
	assert.Empty(t, s.Matched)
}

func TestScore_SingleTermCountsAsPhraseAndToken(t *testing.T) {
	q := Normalize("billing")

	s := q.Score("billing billing")

	// phrase 2 x 10 plus token 2 x 1, no diversity bonus for one distinct token
	assert.Equal(t, 22.0, s.Value)
	assert.Equal(t, []string{"billing", "billing"}, s.Matched)
}

func TestScore_DiversityRequiresTwoDistinctTokens(t *testing.T) {
	q := Query{Tokens: []string{"invoice", "payment", "refund"}}

	one := q.Score("invoice invoice invoice")
	two := q.Score("invoice payment")
	three := q.Score("invoice payment refund")

	assert.Equal(t, 3.0, one.Value)
	assert.Equal(t, 2.0+2*DiversityWeight, two.Value)
	assert.Equal(t, 3.0+3*DiversityWeight, three.Value)
}

func TestScore_PhraseWeightIsPerOccurrence(t *testing.T) {
	q := Query{Phrases: []string{"auth-service"}}

	for n := 1; n <= 4; n++ {
		text := ""
		for i := 0; i < n; i++ {
			text += "auth-service; "
		}
		assert.Equal(t, float64(n)*PhraseWeight, q.Score(text).Value)
	}
}

func TestScore_StopWordFallbackToken(t *testing.T) {
	q := Normalize("и что как")

	s := q.Score("вопрос: и что как быть")

	assert.Equal(t, 1.0, s.Value)
	assert.Equal(t, []string{"и что как"}, s.Matched)
}

func TestScore_EmptyTermNeverMatches(t *testing.T) {
	q := Query{Tokens: []string{""}}

	assert.Equal(t, 0.0, q.Score("anything").Value)
}
