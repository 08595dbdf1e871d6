// Package loader reads tool records from flat files.
//
// A Source yields raw records keyed by slug; it never validates them; that
// is left to tools.Build so a single bad record fails the whole build with a
// diagnostic naming its file.
//
// Two sources are provided:
//
//   - DirSource reads one record per file (.yml, .yaml, .json, .toml) from a
//     directory. The slug is the file name without its extension. Files
//     matched by a .catalogignore file (gitignore syntax) are skipped.
//   - BundleSource reads every record from a single JSON file, either the
//     publisher's projects.json or an id -> record bundle.
package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/radutopala/toolcatalog/internal/tools"
)

// Source produces raw records.
type Source interface {
	// Load reads every record. Read or parse failures are returned as
	// *LoadIOError; records are never skipped silently.
	Load(ctx context.Context) ([]tools.RawRecord, error)

	// Describe names the source for logs.
	Describe() string
}

// Watchable is implemented by sources backed by files that can change.
type Watchable interface {
	// WatchPaths returns the paths to watch for changes.
	WatchPaths() []string

	// Relevant reports whether a change to path should trigger a reload.
	Relevant(path string) bool
}

// LoadIOError reports that a source could not be read or decoded.
type LoadIOError struct {
	Path string
	Err  error
}

func (e *LoadIOError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadIOError) Unwrap() error {
	return e.Err
}

// New returns a DirSource for a directory and a BundleSource for a file.
func New(path string) (Source, error) {
	if path == "" {
		return nil, fmt.Errorf("records path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadIOError{Path: path, Err: err}
	}
	if info.IsDir() {
		return NewDirSource(path), nil
	}
	return NewBundleSource(path), nil
}
