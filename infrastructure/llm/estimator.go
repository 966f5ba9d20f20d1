package llm

import "strings"

// TokenEstimator approximates token counts without a provider round trip,
// for cost estimates and admission decisions.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// WordEstimator approximates tokens as 4/3 of the whitespace-delimited
// word count, the usual rule of thumb for English prose, with a
// character-count floor so long unbroken strings are not undercounted.
type WordEstimator struct{}

// EstimateTokens implements TokenEstimator.
func (WordEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	byWords := (len(strings.Fields(text))*4 + 2) / 3
	byChars := (len(text) + 3) / 4
	if byChars > byWords {
		return byChars
	}
	return byWords
}
