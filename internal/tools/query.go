package tools

import (
	"fmt"
	"sort"
	"strings"
)

// Points awarded per matching field. Scores are additive and uncapped:
// every matching category and tag counts.
const (
	scoreName        = 100
	scoreCategory    = 50
	scoreTag         = 30
	scoreDescription = 20
	scoreURL         = 10
)

// List returns the records whose categories contain category
// (case-insensitive membership), in insertion order. An empty category
// matches everything. Total counts matches before the limit is applied.
func (idx *Index) List(category string, limit int) ListResult {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	want := strings.ToLower(strings.TrimSpace(category))

	result := ListResult{Tools: []Summary{}}
	for i, rec := range idx.records {
		if want != "" && !containsExact(idx.searchable[i].categories, want) {
			continue
		}
		result.Total++
		if len(result.Tools) < limit {
			result.Tools = append(result.Tools, rec.Summary())
		}
	}
	return result
}

// Search scores every record against query and returns the matches ordered
// by score, highest first. Equal scores keep insertion order.
func (idx *Index) Search(query string, limit int) (SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return SearchResult{}, ErrInvalidQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type hit struct {
		pos   int
		score int
	}
	hits := make([]hit, 0)
	for i := range idx.records {
		if score := idx.searchable[i].score(needle); score > 0 {
			hits = append(hits, hit{pos: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	result := SearchResult{
		Query:   query,
		Results: make([]Summary, 0, min(limit, len(hits))),
		Total:   len(hits),
	}
	for _, h := range hits {
		if len(result.Results) == limit {
			break
		}
		result.Results = append(result.Results, idx.records[h.pos].Summary())
	}
	return result, nil
}

// Score returns the relevance of the record with the given id for query,
// or 0 when the id is unknown or the query is blank.
func (idx *Index) Score(id, query string) int {
	pos, ok := idx.byID[id]
	needle := strings.ToLower(strings.TrimSpace(query))
	if !ok || needle == "" {
		return 0
	}
	return idx.searchable[pos].score(needle)
}

func (f searchFields) score(needle string) int {
	score := 0
	if strings.Contains(f.name, needle) {
		score += scoreName
	}
	for _, category := range f.categories {
		if strings.Contains(category, needle) {
			score += scoreCategory
		}
	}
	for _, tag := range f.tags {
		if strings.Contains(tag, needle) {
			score += scoreTag
		}
	}
	if strings.Contains(f.description, needle) {
		score += scoreDescription
	}
	if strings.Contains(f.homepage, needle) || strings.Contains(f.sourceURL, needle) {
		score += scoreURL
	}
	return score
}

// Get looks a record up by exact id, falling back to a case-insensitive
// exact name match. The first record in insertion order wins on ambiguous
// names.
func (idx *Index) Get(idOrName string) (Record, bool) {
	if pos, ok := idx.byID[idOrName]; ok {
		return idx.records[pos].clone(), true
	}
	if pos, ok := idx.byName[strings.ToLower(idOrName)]; ok {
		return idx.records[pos].clone(), true
	}
	return Record{}, false
}

// NotFound builds the structured negative result for a failed Get,
// suggesting close ids or names.
func (idx *Index) NotFound(idOrName string) NotFound {
	suggestions := idx.suggest(idOrName, maxSuggestions)
	if suggestions == nil {
		suggestions = []string{}
	}
	return NotFound{
		ErrorResult: ErrorResult{Error: fmt.Sprintf("Tool with ID or name '%s' not found", idOrName)},
		Suggestions: suggestions,
	}
}

func containsExact(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
