// Package suggest finds the closest known name for a misspelled one.
package suggest

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Closest finds the closest string match for target among candidates.
// It prefers candidates containing target as a fuzzy subsequence
// ("mini" -> "minimap2") and falls back to edit distance for typos
// ("qurey" -> "query"). Returns "" when nothing is close enough.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best := ""
	bestDistance := maxDistance(target) + 1
	for _, candidate := range candidates {
		d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(candidate))
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}

// DidYouMean formats the closest match as a hint, or returns ""
func DidYouMean(target string, candidates []string) string {
	if match := Closest(target, candidates); match != "" && match != target {
		return "did you mean '" + match + "'?"
	}
	return ""
}

// maxDistance is the largest edit distance still considered a typo
func maxDistance(target string) int {
	n := len(target) / 2
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}
