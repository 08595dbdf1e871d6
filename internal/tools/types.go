package tools

import (
	"encoding/json"
	"slices"
)

// Default limits applied when a caller passes a non-positive limit.
const (
	DefaultListLimit   = 50
	DefaultSearchLimit = 10
)

// RawRecord is one record as produced by a loader, before validation.
type RawRecord struct {
	Slug   string         // Filename-derived identifier, becomes the record id
	Source string         // Where the record came from (file path), used in diagnostics
	Fields map[string]any // Decoded record fields
}

// Record is a validated, normalized catalog entry.
type Record struct {
	ID                 string
	Name               string
	Description        string
	Categories         []string
	Tags               []string
	CompatibleVersions []string
	Homepage           string
	DocsURL            string
	SourceURL          string

	// Extra holds source fields that are passed through but never indexed.
	Extra map[string]any

	// Source is the file the record was loaded from.
	Source string
}

// Summary is the fixed projection returned by list and search.
type Summary struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Categories         []string `json:"categories"`
	Tags               []string `json:"tags"`
	CompatibleVersions []string `json:"compatibleVersions"`
	Homepage           string   `json:"homepage,omitempty"`
	DocsURL            string   `json:"docsUrl,omitempty"`
}

// ListResult is the response of a list query.
type ListResult struct {
	Tools []Summary `json:"tools"`
	Total int       `json:"total"`
}

// SearchResult is the response of a search query.
type SearchResult struct {
	Query   string    `json:"query"`
	Results []Summary `json:"results"`
	Total   int       `json:"total"`
}

// CategoriesResult is the response of a categories query.
type CategoriesResult struct {
	Categories []string `json:"categories"`
	Total      int      `json:"total"`
}

// ErrorResult is the payload of a rejected query, such as an empty search
// or a catalog that failed to load.
type ErrorResult struct {
	Error string `json:"error"`
}

// NotFound is the structured negative result of a get query. Suggestions
// is always present, possibly empty, which tells it apart from ErrorResult.
type NotFound struct {
	ErrorResult
	Suggestions []string `json:"suggestions"`
}

// Summary projects the record onto the list/search view.
func (r Record) Summary() Summary {
	return Summary{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		Categories:         cloneStrings(r.Categories),
		Tags:               cloneStrings(r.Tags),
		CompatibleVersions: cloneStrings(r.CompatibleVersions),
		Homepage:           r.Homepage,
		DocsURL:            r.DocsURL,
	}
}

// clone returns a copy of r sharing no slices or maps with it.
func (r Record) clone() Record {
	r.Categories = slices.Clone(r.Categories)
	r.Tags = slices.Clone(r.Tags)
	r.CompatibleVersions = slices.Clone(r.CompatibleVersions)
	if r.Extra != nil {
		r.Extra = cloneValue(r.Extra).(map[string]any)
	}
	return r
}

// Fields returns the full record as a flat map: passthrough fields first,
// then the normalized fields on top so the index-assigned id always wins.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+9)
	for k, v := range r.Extra {
		out[k] = cloneValue(v)
	}
	out["id"] = r.ID
	out["name"] = r.Name
	out["description"] = r.Description
	out["categories"] = cloneStrings(r.Categories)
	out["tags"] = cloneStrings(r.Tags)
	out["compatibleVersions"] = cloneStrings(r.CompatibleVersions)
	setIfNotEmpty(out, "homepage", r.Homepage)
	setIfNotEmpty(out, "docsUrl", r.DocsURL)
	setIfNotEmpty(out, "sourceUrl", r.SourceURL)
	return out
}

// MarshalJSON renders the full record. Map keys are emitted sorted, which
// keeps published files stable across runs.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

func setIfNotEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// cloneStrings copies values, turning nil into an empty slice so JSON
// output is always an array.
func cloneStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}

// cloneValue deep-copies decoded record data. Scalars are returned as is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
