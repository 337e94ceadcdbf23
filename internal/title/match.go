package title

import (
	"regexp"
	"strings"
)

var (
	yearPattern       = regexp.MustCompile(`\(\d{4}\)`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize lowercases a title, drops a "(YYYY)" year, turns punctuation into
// spaces and collapses whitespace: "Toy Story (1995)" -> "toy story"
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = yearPattern.ReplaceAllString(s, "")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Ratio scores two strings in [0, 1] with the Ratcliff/Obershelp gestalt measure:
// twice the number of matching characters over the total length.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

// matchingChars counts characters covered by the recursively found longest common blocks
func matchingChars(a, b []rune) int {
	i, j, k := longestCommon(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingChars(a[:i], b[:j]) + matchingChars(a[i+k:], b[j+k:])
}

// longestCommon finds the longest common substring, preferring the earliest
// start in a and then in b
func longestCommon(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	bestI, bestJ, bestK := 0, 0, 0
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestK {
					bestK = curr[j]
					bestI = i - bestK
					bestJ = j - bestK
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestI, bestJ, bestK
}
