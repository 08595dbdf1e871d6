// Package publish writes the static catalog API: an aggregate
// projects.json, one file per tool, the flat summaries used by the browser
// filter, a JavaScript data module and a bundle readable by
// loader.BundleSource.
package publish

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/tools"
)

// Output file names.
const (
	ProjectsFile  = "projects.json"
	SummariesFile = "summaries.json"
	BundleFile    = "bundle.json"
	DataFile      = "tools-data.js"

	// DataGlobal is the browser global assigned by DataFile.
	DataGlobal = "ToolCatalogData"
)

var reservedIDs = map[string]bool{
	"projects":  true,
	"summaries": true,
	"bundle":    true,
}

// UnsafeIDError reports a record id that cannot be used as a file name.
type UnsafeIDError struct {
	ID string
}

func (e *UnsafeIDError) Error() string {
	return fmt.Sprintf("tool id %q is not a safe file name", e.ID)
}

// Options configures a Publisher.
type Options struct {
	OutDir string
	Gzip   bool

	// Updated, when set, is written to projects.json as an RFC 3339
	// timestamp. Left zero the output depends only on the index.
	Updated time.Time

	Logger *zap.Logger
}

// Result describes one publish run.
type Result struct {
	Digest string
	Files  []string
	Pruned []string
}

// Publisher writes index snapshots to a directory.
type Publisher struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{opts: opts, logger: logger.Named("publish")}
}

type projectsPayload struct {
	Projects   []tools.Record `json:"projects"`
	Categories []string       `json:"categories"`
	Total      int            `json:"total"`
	Digest     string         `json:"digest"`
	Updated    string         `json:"updated,omitempty"`
}

// orderedBundle encodes records as an id -> record object in index order.
type orderedBundle []tools.Record

func (b orderedBundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rec.ID)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Digest returns the BLAKE3 hex digest of the compact summaries payload.
// It changes whenever any listed field of any tool changes.
func Digest(idx *tools.Index) (string, error) {
	data, err := json.Marshal(summaries(idx))
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func summaries(idx *tools.Index) []tools.Summary {
	records := idx.Records()
	out := make([]tools.Summary, len(records))
	for i, rec := range records {
		out[i] = rec.Summary()
	}
	return out
}

// Publish writes every output file for idx. Files are replaced atomically;
// per-tool files of tools that were in the previous bundle but are gone
// now are removed.
func (p *Publisher) Publish(ctx context.Context, idx *tools.Index) (Result, error) {
	if p.opts.OutDir == "" {
		return Result{}, errors.New("publish: output directory is required")
	}
	records := idx.Records()
	for _, rec := range records {
		if err := checkID(rec.ID); err != nil {
			return Result{}, err
		}
	}
	if err := os.MkdirAll(p.opts.OutDir, 0755); err != nil {
		return Result{}, fmt.Errorf("publish: create output directory: %w", err)
	}

	previous := p.previousIDs()

	digest, err := Digest(idx)
	if err != nil {
		return Result{}, fmt.Errorf("publish: digest: %w", err)
	}

	payload := projectsPayload{
		Projects:   records,
		Categories: idx.Categories(),
		Total:      len(records),
		Digest:     digest,
	}
	if !p.opts.Updated.IsZero() {
		payload.Updated = p.opts.Updated.UTC().Format(time.RFC3339)
	}

	projects, err := encode(payload)
	if err != nil {
		return Result{}, err
	}

	files := map[string][]byte{ProjectsFile: projects}
	if files[SummariesFile], err = encode(summaries(idx)); err != nil {
		return Result{}, err
	}
	if files[BundleFile], err = encode(orderedBundle(records)); err != nil {
		return Result{}, err
	}
	files[DataFile] = dataModule(projects)
	for _, rec := range records {
		if files[rec.ID+".json"], err = encode(rec); err != nil {
			return Result{}, err
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	result := Result{Digest: digest}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		written, err := p.write(name, files[name])
		if err != nil {
			return Result{}, err
		}
		result.Files = append(result.Files, written...)
	}

	current := make(map[string]bool, len(records))
	for _, rec := range records {
		current[rec.ID] = true
	}
	for _, id := range previous {
		if current[id] || checkID(id) != nil {
			continue
		}
		for _, name := range []string{id + ".json", id + ".json.gz"} {
			err := os.Remove(filepath.Join(p.opts.OutDir, name))
			if err == nil {
				result.Pruned = append(result.Pruned, name)
			} else if !errors.Is(err, os.ErrNotExist) {
				return Result{}, fmt.Errorf("publish: remove stale %s: %w", name, err)
			}
		}
	}

	p.logger.Info("catalog published",
		zap.String("dir", p.opts.OutDir),
		zap.Int("tools", len(records)),
		zap.Int("files", len(result.Files)),
		zap.Strings("pruned", result.Pruned),
		zap.String("digest", digest),
	)
	return result, nil
}

func (p *Publisher) write(name string, data []byte) ([]string, error) {
	path := filepath.Join(p.opts.OutDir, name)
	if err := writeAtomic(path, data); err != nil {
		return nil, err
	}
	written := []string{name}
	if p.opts.Gzip {
		compressed, err := gzipBytes(data)
		if err != nil {
			return nil, fmt.Errorf("publish: compress %s: %w", name, err)
		}
		if err := writeAtomic(path+".gz", compressed); err != nil {
			return nil, err
		}
		written = append(written, name+".gz")
	}
	return written, nil
}

// previousIDs lists the tool ids of the bundle already in the output
// directory, if any.
func (p *Publisher) previousIDs() []string {
	data, err := os.ReadFile(filepath.Join(p.opts.OutDir, BundleFile))
	if err != nil {
		return nil
	}
	var bundle map[string]json.RawMessage
	if err := json.Unmarshal(data, &bundle); err != nil {
		p.logger.Warn("ignoring unreadable previous bundle", zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(bundle))
	for id := range bundle {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) ||
		strings.Contains(id, "..") ||
		strings.ContainsRune(id, 0) ||
		reservedIDs[id] {
		return &UnsafeIDError{ID: id}
	}
	return nil
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("publish: encode: %w", err)
	}
	return append(data, '\n'), nil
}

func dataModule(projects []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("window." + DataGlobal + " = ")
	buf.Write(bytes.TrimRight(projects, "\n"))
	buf.WriteString(";\n")
	return buf.Bytes()
}
