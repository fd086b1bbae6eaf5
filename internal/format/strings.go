package format

// Truncate truncates a string to maxLen runes (Unicode-aware).
// Returns the full string if it's shorter than maxLen runes.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// UniqueBy returns input with later elements that share a key with an
// earlier one removed. The order of first occurrence is preserved.
func UniqueBy[T any, K comparable](input []T, key func(T) K) []T {
	seen := make(map[K]bool, len(input))
	var result []T
	for _, v := range input {
		k := key(v)
		if !seen[k] {
			seen[k] = true
			result = append(result, v)
		}
	}
	return result
}
