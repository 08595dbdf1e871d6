package tools

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned by Search for an empty or whitespace-only query.
var ErrInvalidQuery = errors.New("invalid query: query must not be empty")

// ValidationError reports a structurally invalid record. It aborts the build.
type ValidationError struct {
	Source string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid record %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("invalid record %s: field %q %s", e.Source, e.Field, e.Reason)
}

// DuplicateIDError reports two records resolving to the same id.
type DuplicateIDError struct {
	ID     string
	First  string
	Second string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate tool id %q: defined by %s and %s", e.ID, e.First, e.Second)
}
