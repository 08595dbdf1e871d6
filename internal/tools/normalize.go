package tools

import (
	"fmt"
	"strings"
)

// Raw keys accepted for each normalized list or URL field, in priority order.
// The underscored and short forms are what the hand-written record files use.
var (
	categoryKeys = []string{"categories", "category"}
	tagKeys      = []string{"tags"}
	versionKeys  = []string{"compatibleVersions", "compatible_versions", "drupal_versions"}
	homepageKeys = []string{"homepage"}
	docsKeys     = []string{"docsUrl", "docs_url", "docs"}
	sourceKeys   = []string{"sourceUrl", "source_url", "source"}
)

// normalize validates a raw record and converts it into a Record.
func normalize(raw RawRecord) (Record, error) {
	source := raw.Source
	if source == "" {
		source = raw.Slug
	}

	id := strings.TrimSpace(raw.Slug)
	if id == "" {
		return Record{}, &ValidationError{Source: source, Reason: "has an empty slug"}
	}

	fields := make(map[string]any, len(raw.Fields))
	for k, v := range raw.Fields {
		fields[k] = cloneValue(v)
	}

	name, err := requiredString(fields, "name", source)
	if err != nil {
		return Record{}, err
	}
	description, err := requiredString(fields, "description", source)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:          id,
		Name:        name,
		Description: description,
		Source:      source,
	}

	if rec.Categories, err = takeList(fields, categoryKeys, source); err != nil {
		return Record{}, err
	}
	if rec.Tags, err = takeList(fields, tagKeys, source); err != nil {
		return Record{}, err
	}
	if rec.CompatibleVersions, err = takeList(fields, versionKeys, source); err != nil {
		return Record{}, err
	}
	if rec.Homepage, err = takeString(fields, homepageKeys, source); err != nil {
		return Record{}, err
	}
	if rec.DocsURL, err = takeString(fields, docsKeys, source); err != nil {
		return Record{}, err
	}
	if rec.SourceURL, err = takeString(fields, sourceKeys, source); err != nil {
		return Record{}, err
	}

	// The index assigns the id; a conflicting raw id is discarded.
	delete(fields, "id")
	if len(fields) > 0 {
		rec.Extra = fields
	}
	return rec, nil
}

func requiredString(fields map[string]any, key, source string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", &ValidationError{Source: source, Field: key, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Source: source, Field: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Source: source, Field: key, Reason: "must not be empty"}
	}
	delete(fields, key)
	return s, nil
}

// takeList removes every alias in keys from fields and returns the values
// of the first one present, trimmed and with empty entries dropped.
func takeList(fields map[string]any, keys []string, source string) ([]string, error) {
	var (
		out   []string
		found bool
	)
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		delete(fields, key)
		if found {
			continue
		}
		found = true
		list, err := toStrings(v)
		if err != nil {
			return nil, &ValidationError{Source: source, Field: key, Reason: err.Error()}
		}
		out = list
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func takeString(fields map[string]any, keys []string, source string) (string, error) {
	var (
		out   string
		found bool
	)
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		delete(fields, key)
		if found || v == nil {
			continue
		}
		found = true
		s, ok := v.(string)
		if !ok {
			return "", &ValidationError{Source: source, Field: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
		out = strings.TrimSpace(s)
	}
	return out, nil
}

func toStrings(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return appendTrimmed(nil, val), nil
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			out = appendTrimmed(out, s)
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			out = appendTrimmed(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list of strings, got %T", v)
	}
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("must contain only scalar values, got %T", v)
	}
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
