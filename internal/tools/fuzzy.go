package tools

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const maxSuggestions = 3

// suggest returns up to n record ids whose id or name is within a small
// edit distance of query. Closer matches come first; ties keep insertion
// order.
func (idx *Index) suggest(query string, n int) []string {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" || n <= 0 {
		return nil
	}
	maxDistance := allowedDistance(queryLower)

	type candidate struct {
		pos      int
		distance int
	}
	var candidates []candidate
	for i, rec := range idx.records {
		best := -1
		for _, target := range []string{strings.ToLower(rec.ID), idx.searchable[i].name} {
			if d, ok := fuzzyDistance(queryLower, target, maxDistance); ok && (best < 0 || d < best) {
				best = d
			}
		}
		if best >= 0 {
			candidates = append(candidates, candidate{pos: i, distance: best})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})

	out := make([]string, 0, min(n, len(candidates)))
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, idx.records[c.pos].ID)
	}
	return out
}

// allowedDistance scales the tolerated edit distance with the query length.
// Shorter queries get stricter matching.
func allowedDistance(query string) int {
	return max(1, min(3, utf8.RuneCountInString(query)/3))
}

// fuzzyDistance reports how far query is from target. A substring match
// counts as distance 0; otherwise the whole target and each of its words
// (split on space, underscore, dash) are compared.
func fuzzyDistance(query, target string, maxDistance int) (int, bool) {
	if target == "" {
		return 0, false
	}
	if strings.Contains(target, query) {
		return 0, true
	}

	best := levenshteinDistance(query, target)
	words := strings.FieldsFunc(target, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	for _, word := range words {
		if d := levenshteinDistance(query, word); d < best {
			best = d
		}
	}
	return best, best <= maxDistance
}

// levenshteinDistance counts the single-rune insertions, deletions and
// substitutions needed to turn a into b.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
