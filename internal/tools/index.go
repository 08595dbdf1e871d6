package tools

import (
	"sort"
	"strings"
)

// Index is an immutable in-memory collection of tool records plus the
// derived category set. It is safe for concurrent use once built.
type Index struct {
	records    []Record
	searchable []searchFields
	byID       map[string]int
	byName     map[string]int // lower-cased name -> first position
	categories []string
}

// searchFields holds the lower-cased values a search query is matched against.
type searchFields struct {
	name        string
	description string
	categories  []string
	tags        []string
	homepage    string
	sourceURL   string
}

// Build validates and normalizes raw records into a new Index. Any invalid
// record or duplicate id aborts the build; no partial index is returned.
func Build(raws []RawRecord) (*Index, error) {
	idx := &Index{
		records:    make([]Record, 0, len(raws)),
		searchable: make([]searchFields, 0, len(raws)),
		byID:       make(map[string]int, len(raws)),
		byName:     make(map[string]int, len(raws)),
	}

	seen := make(map[string]struct{})
	for _, raw := range raws {
		rec, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		if pos, exists := idx.byID[rec.ID]; exists {
			return nil, &DuplicateIDError{ID: rec.ID, First: idx.records[pos].Source, Second: rec.Source}
		}

		pos := len(idx.records)
		idx.records = append(idx.records, rec)
		idx.searchable = append(idx.searchable, newSearchFields(rec))
		idx.byID[rec.ID] = pos

		nameKey := strings.ToLower(rec.Name)
		if _, exists := idx.byName[nameKey]; !exists {
			idx.byName[nameKey] = pos
		}

		for _, category := range rec.Categories {
			if _, ok := seen[category]; ok {
				continue
			}
			seen[category] = struct{}{}
			idx.categories = append(idx.categories, category)
		}
	}
	sort.Strings(idx.categories)
	if idx.categories == nil {
		idx.categories = []string{}
	}

	return idx, nil
}

func newSearchFields(rec Record) searchFields {
	return searchFields{
		name:        strings.ToLower(rec.Name),
		description: strings.ToLower(rec.Description),
		categories:  lowerAll(rec.Categories),
		tags:        lowerAll(rec.Tags),
		homepage:    strings.ToLower(rec.Homepage),
		sourceURL:   strings.ToLower(rec.SourceURL),
	}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

// Len returns the number of records in the index.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Records returns every record in insertion order.
func (idx *Index) Records() []Record {
	out := make([]Record, len(idx.records))
	for i, rec := range idx.records {
		out[i] = rec.clone()
	}
	return out
}

// Categories returns the sorted, deduplicated set of all record categories.
func (idx *Index) Categories() []string {
	out := make([]string, len(idx.categories))
	copy(out, idx.categories)
	return out
}
