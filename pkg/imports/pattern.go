package imports

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Both patterns are anchored to column zero. Indented imports (inside a
// function or an if block) are not seen, and a line inside a multi-line
// string that starts with "import " or "from x import" is taken at face value.
var (
	importLinePattern = regexp.MustCompile(`^import\s+([\pL\pN_.,\s]+)`)
	fromLinePattern   = regexp.MustCompile(`^from\s+([\pL\pN_.]+)\s+import`)
)

// PatternExtractor extracts imports line by line with regular expressions.
// It never fails on malformed input; it is the best-effort path for source
// that does not parse.
type PatternExtractor struct{}

// NewPatternExtractor creates a PatternExtractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract scans src one line at a time.
func (e *PatternExtractor) Extract(ctx context.Context, src []byte) (*Record, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("pattern extractor: %w", err)
	}

	rec := NewRecord()

	for line := range strings.SplitSeq(string(src), "\n") {
		line = strings.TrimSuffix(line, "\r")

		if match := importLinePattern.FindStringSubmatch(line); match != nil {
			for _, name := range importTokens(match[1]) {
				rec.Plain.Add(name)
			}

			continue
		}

		if match := fromLinePattern.FindStringSubmatch(line); match != nil {
			// A relative module (".x" or "..") has an empty top level.
			rec.From.Add(TopLevel(match[1]))
		}
	}

	return rec, nil
}

// importTokens splits "a.b as c, d" into top-level names.
func importTokens(list string) []string {
	var names []string

	for token := range strings.SplitSeq(list, ",") {
		words := strings.Fields(token)
		if len(words) == 0 {
			continue
		}

		// The module is the first word; an "as" alias and anything after it
		// is dropped.
		if name := TopLevel(words[0]); name != "" {
			names = append(names, name)
		}
	}

	return names
}
