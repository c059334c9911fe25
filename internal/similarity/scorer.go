// Package similarity provides string similarity scoring for entity
// resolution. Scoring is a pluggable strategy so matching behavior can be
// tested independently of resolution logic.
package similarity

import "strings"

// Scorer rates how closely a query matches a candidate, in [0,1].
// 1 means equal after normalization.
type Scorer interface {
	Score(query, candidate string) float64
}

// LevenshteinScorer scores by normalized edit distance over casefolded,
// whitespace-collapsed input.
type LevenshteinScorer struct{}

func NewLevenshteinScorer() *LevenshteinScorer {
	return &LevenshteinScorer{}
}

func (s *LevenshteinScorer) Score(query, candidate string) float64 {
	q := Normalize(query)
	c := Normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}
	// A candidate that contains the query as a whole word scores high, so
	// "Ramesh" finds "Ramesh Kumar" without edit distance punishing the
	// extra surname.
	if containsWord(c, q) {
		return 0.9
	}

	dist := levenshtein(q, c)
	longer := len([]rune(q))
	if l := len([]rune(c)); l > longer {
		longer = l
	}
	return 1 - float64(dist)/float64(longer)
}

// Normalize casefolds and collapses interior whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func containsWord(haystack, needle string) bool {
	for _, w := range strings.Fields(haystack) {
		if w == needle {
			return true
		}
	}
	return false
}

// levenshtein computes edit distance over runes with two rolling rows
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
