package catalog

import "strings"

// Score counts the whitespace tokens of query that occur as substrings of
// text, both lower-cased.
func Score(query, text string) int {
	haystack := strings.ToLower(text)
	score := 0
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(haystack, token) {
			score++
		}
	}
	return score
}

// Lookup returns the entry with the highest Score. Ties go to the earliest
// entry; a best score of zero is no match.
func Lookup[T any](entries []T, query string, text func(T) string) (T, int, bool) {
	var best T
	bestIdx := -1
	bestScore := 0
	for i, e := range entries {
		if s := Score(query, text(e)); s > bestScore {
			best, bestIdx, bestScore = e, i, s
		}
	}
	return best, bestIdx, bestIdx >= 0
}
