package utils

// Token estimates use the rough 1 token ~= 4 characters heuristic.

// CountTokens estimates the number of tokens in text; non-empty text is at least 1 token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly fit limit tokens.
// The second result reports whether anything was removed.
func TruncateToTokenLimit(text string, limit int) (string, bool) {
	if limit <= 0 {
		return "", text != ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text, false
	}
	return string(runes[:charLimit]), true
}
