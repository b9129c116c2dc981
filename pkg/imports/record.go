// Package imports extracts the top-level module names imported by Python
// source code.
//
// Two strategies exist. StructuralExtractor parses the source with the
// tree-sitter Python grammar and is exact. PatternExtractor scans lines with
// regular expressions and only sees imports that start at column zero.
// FallbackExtractor tries the former and falls back to the latter when the
// source does not parse.
package imports

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// Extractor extracts the imports of one unit of Python source.
type Extractor interface {
	Extract(ctx context.Context, src []byte) (*Record, error)
}

// Mode names the strategy that produced a Record.
type Mode string

const (
	// ModeStructural means the source parsed and the syntax tree was walked.
	ModeStructural Mode = "structural"
	// ModeFallback means the source did not parse and line patterns were used.
	ModeFallback Mode = "fallback"
)

// Set is a set of module names.
type Set map[string]struct{}

// NewSet returns a set holding the given names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s.Add(name)
	}

	return s
}

// Add inserts name. Empty names are ignored.
func (s Set) Add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]

	return ok
}

// Sorted returns the names in ascending order. Never nil.
func (s Set) Sorted() []string {
	out := slices.Sorted(maps.Keys(s))
	if out == nil {
		return []string{}
	}

	return out
}

// Record holds the names found by one extraction.
// Plain collects "import X" statements, From collects "from X import Y".
type Record struct {
	Plain Set
	From  Set
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		Plain: make(Set),
		From:  make(Set),
	}
}

// All returns the union of Plain and From.
func (r *Record) All() Set {
	all := make(Set, len(r.Plain)+len(r.From))
	maps.Copy(all, r.Plain)
	maps.Copy(all, r.From)

	return all
}

// TopLevel returns the segment of a dotted module path before the first dot.
// A path that starts with a dot (a relative import) yields "".
func TopLevel(path string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(path), ".")

	return strings.TrimSpace(head)
}
