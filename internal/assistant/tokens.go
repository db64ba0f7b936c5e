package assistant

import "strings"

// EstimateTokens gives a rough token count from the word count. Exact
// tokenization is not needed to keep chat history under budget.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
