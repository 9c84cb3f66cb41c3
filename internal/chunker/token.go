package chunker

import "strings"

// EstimateTokens approximates the model token count of text at 1.33 tokens
// per whitespace-separated word. Non-empty text counts at least one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		if text == "" {
			return 0
		}
		return 1
	}
	return max(int(float64(words)*tokensPerWord), 1)
}

const tokensPerWord = 1.33

// wordsFor is the inverse of EstimateTokens.
func wordsFor(tokens int) int {
	return int(float64(tokens) / tokensPerWord)
}
