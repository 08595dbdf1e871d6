package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/radutopala/toolcatalog/internal/tools"
)

// BundleSource loads every record from one JSON file. Two layouts are
// accepted:
//
//	{"projects": [{"id": "drush", ...}, ...], ...}   // publisher projects.json
//	{"drush": {...}, "lando": {...}}                 // id -> record bundle
//
// Record order follows the document.
type BundleSource struct {
	path string
}

// NewBundleSource creates a source reading the bundle at path.
func NewBundleSource(path string) *BundleSource {
	return &BundleSource{path: path}
}

// Describe implements Source.
func (s *BundleSource) Describe() string {
	return "bundle:" + s.path
}

// WatchPaths implements Watchable. The parent directory is watched so
// editors that replace the file on save are still seen.
func (s *BundleSource) WatchPaths() []string {
	return []string{filepath.Dir(s.path)}
}

// Relevant implements Watchable.
func (s *BundleSource) Relevant(path string) bool {
	return filepath.Clean(path) == filepath.Clean(s.path)
}

// Load implements Source.
func (s *BundleSource) Load(ctx context.Context) ([]tools.RawRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadIOError{Path: s.path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data = jsonc.ToJSON(data)

	var envelope struct {
		Projects []map[string]any `json:"projects"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Projects != nil {
		return s.fromProjects(envelope.Projects)
	}

	records, err := s.fromMapping(data)
	if err != nil {
		return nil, &LoadIOError{Path: s.path, Err: err}
	}
	return records, nil
}

func (s *BundleSource) fromProjects(projects []map[string]any) ([]tools.RawRecord, error) {
	records := make([]tools.RawRecord, 0, len(projects))
	for i, fields := range projects {
		id, _ := fields["id"].(string)
		if id == "" {
			return nil, &LoadIOError{
				Path: s.path,
				Err:  fmt.Errorf("projects[%d]: missing string id", i),
			}
		}
		records = append(records, tools.RawRecord{
			Slug:   id,
			Source: fmt.Sprintf("%s#%s", s.path, id),
			Fields: fields,
		})
	}
	return records, nil
}

// fromMapping decodes an id -> record object, keeping key order.
func (s *BundleSource) fromMapping(data []byte) ([]tools.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("bundle must be a JSON object")
	}

	var records []tools.RawRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		id := tok.(string)

		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("record %q: %w", id, err)
		}
		if fields == nil {
			return nil, fmt.Errorf("record %q: must be an object", id)
		}
		records = append(records, tools.RawRecord{
			Slug:   id,
			Source: fmt.Sprintf("%s#%s", s.path, id),
			Fields: fields,
		})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return records, nil
}
