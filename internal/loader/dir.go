package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/radutopala/toolcatalog/internal/tools"
)

// IgnoreFile is the optional file listing record files to skip.
const IgnoreFile = ".catalogignore"

type decodeFunc func(data []byte) (map[string]any, error)

var decoders = map[string]decodeFunc{
	".yml":  decodeYAML,
	".yaml": decodeYAML,
	".json": decodeJSON,
	".toml": decodeTOML,
}

// DirSource loads one record per file from a directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a source reading record files from dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Describe implements Source.
func (s *DirSource) Describe() string {
	return "dir:" + s.dir
}

// Load reads every record file in filename order.
func (s *DirSource) Load(ctx context.Context) ([]tools.RawRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &LoadIOError{Path: s.dir, Err: err}
	}

	ignored, err := s.ignoreMatcher()
	if err != nil {
		return nil, err
	}

	records := make([]tools.RawRecord, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		decode, ok := decoders[ext]
		if !ok {
			continue
		}
		if ignored != nil && ignored.MatchesPath(name) {
			continue
		}

		path := filepath.Join(s.dir, name)
		fields, err := readRecord(path, decode)
		if err != nil {
			return nil, err
		}
		records = append(records, tools.RawRecord{
			Slug:   strings.TrimSuffix(name, filepath.Ext(name)),
			Source: path,
			Fields: fields,
		})
	}
	return records, nil
}

// WatchPaths implements Watchable.
func (s *DirSource) WatchPaths() []string {
	return []string{s.dir}
}

// Relevant implements Watchable: record files and the ignore file directly
// inside the directory trigger a reload.
func (s *DirSource) Relevant(path string) bool {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(s.dir) {
		return false
	}
	name := filepath.Base(path)
	if name == IgnoreFile {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (s *DirSource) ignoreMatcher() (*ignore.GitIgnore, error) {
	path := filepath.Join(s.dir, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &LoadIOError{Path: path, Err: err}
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, &LoadIOError{Path: path, Err: err}
	}
	return matcher, nil
}

func readRecord(path string, decode decodeFunc) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadIOError{Path: path, Err: err}
	}
	fields, err := decode(data)
	if err != nil {
		return nil, &LoadIOError{Path: path, Err: err}
	}
	if fields == nil {
		return nil, &LoadIOError{Path: path, Err: errors.New("record file is empty")}
	}
	return fields, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if fields == nil {
		return nil, nil
	}
	return stringKeys(fields).(map[string]any), nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &fields); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return fields, nil
}

func decodeTOML(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := toml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return fields, nil
}

// stringKeys converts YAML mappings with non-string keys into
// map[string]any so records stay JSON-encodable.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = stringKeys(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = stringKeys(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = stringKeys(item)
		}
		return val
	default:
		return v
	}
}
