package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FallbackExtractor tries a primary extractor and, when the source is not
// valid Python, retries with a fallback extractor.
type FallbackExtractor struct {
	primary  Extractor
	fallback Extractor
	logger   *slog.Logger
}

// NewFallbackExtractor wires the structural extractor with the pattern
// extractor as its fallback. A nil logger uses slog.Default().
func NewFallbackExtractor(logger *slog.Logger) (*FallbackExtractor, error) {
	structural, err := NewStructuralExtractor()
	if err != nil {
		return nil, err
	}

	return NewFallbackExtractorWith(structural, NewPatternExtractor(), logger), nil
}

// NewFallbackExtractorWith builds a FallbackExtractor from explicit strategies.
func NewFallbackExtractorWith(primary, fallback Extractor, logger *slog.Logger) *FallbackExtractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &FallbackExtractor{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Extract implements Extractor.
func (f *FallbackExtractor) Extract(ctx context.Context, src []byte) (*Record, error) {
	rec, _, err := f.ExtractWithMode(ctx, src)

	return rec, err
}

// ExtractWithMode extracts imports and reports which strategy produced them.
// Only ErrSyntax from the primary triggers the fallback; other errors are
// returned unchanged.
func (f *FallbackExtractor) ExtractWithMode(ctx context.Context, src []byte) (*Record, Mode, error) {
	rec, err := f.primary.Extract(ctx, src)
	if err == nil {
		return rec, ModeStructural, nil
	}

	if !errors.Is(err, ErrSyntax) {
		return nil, "", err
	}

	f.logger.DebugContext(ctx, "source does not parse, using line patterns")

	rec, err = f.fallback.Extract(ctx, src)
	if err != nil {
		return nil, "", fmt.Errorf("fallback extraction: %w", err)
	}

	return rec, ModeFallback, nil
}
