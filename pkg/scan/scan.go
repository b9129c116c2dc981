// Package scan ties source reading, import extraction and classification
// together into one analysis per file.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/pydeps/internal/source"
	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
	"github.com/Sumatoshi-tech/pydeps/pkg/imports"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
)

const (
	spanScan = "pydeps.scan"

	attrSource   = "pydeps.source"
	attrMode     = "pydeps.mode"
	attrPython   = "pydeps.python"
	attrExternal = "pydeps.external.count"
)

// ModeExtractor extracts imports and reports which strategy succeeded.
type ModeExtractor interface {
	ExtractWithMode(ctx context.Context, src []byte) (*imports.Record, imports.Mode, error)
}

// Options configures a Scanner. Zero values select defaults.
type Options struct {
	Catalog        *catalog.Catalog
	PackageManager deps.PackageManager
	Reader         source.Reader
	Extractor      ModeExtractor
	Logger         *slog.Logger
	Tracer         trace.Tracer
	Metrics        *observability.ScanMetrics
}

// Scanner analyzes Python sources. It is safe for concurrent use.
type Scanner struct {
	catalog   *catalog.Catalog
	pm        deps.PackageManager
	reader    source.Reader
	extractor ModeExtractor
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.ScanMetrics
}

// Result is the outcome of one analysis.
type Result struct {
	Source   string
	Language string
	Mode     imports.Mode
	Record   *imports.Record
	// External is sorted and never nil.
	External []string
	Python   string
	// Command is empty when nothing needs installing.
	Command string
}

// New builds a Scanner from opts.
func New(opts Options) (*Scanner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	pm := opts.PackageManager
	if pm.Command == "" {
		pm = deps.DefaultPackageManager()
	}

	extractor := opts.Extractor
	if extractor == nil {
		fe, err := imports.NewFallbackExtractor(logger)
		if err != nil {
			return nil, fmt.Errorf("create extractor: %w", err)
		}

		extractor = fe
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	return &Scanner{
		catalog:   cat,
		pm:        pm,
		reader:    opts.Reader,
		extractor: extractor,
		logger:    logger,
		tracer:    tracer,
		metrics:   opts.Metrics,
	}, nil
}

// Catalog returns the catalog the scanner classifies against.
func (s *Scanner) Catalog() *catalog.Catalog {
	return s.catalog
}

// ScanFile reads and analyzes the file at path.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, spanScan, trace.WithAttributes(attribute.String(attrSource, path)))
	defer span.End()

	start := time.Now()

	file, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, s.fail(ctx, span, start, err)
	}

	if file.Language != "" && !file.IsPython() {
		s.logger.WarnContext(ctx, "source does not look like Python", "path", file.Path, "language", file.Language)
	}

	return s.analyze(ctx, span, start, file)
}

// ScanSource analyzes in-memory source. name labels the result and is used
// for language detection only.
func (s *Scanner) ScanSource(ctx context.Context, name string, src []byte) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, spanScan, trace.WithAttributes(attribute.String(attrSource, name)))
	defer span.End()

	start := time.Now()

	file, err := source.NewFile(name, src)
	if err != nil {
		return nil, s.fail(ctx, span, start, err)
	}

	return s.analyze(ctx, span, start, file)
}

func (s *Scanner) analyze(ctx context.Context, span trace.Span, start time.Time, file *source.File) (*Result, error) {
	record, mode, err := s.extractor.ExtractWithMode(ctx, file.Content)
	if err != nil {
		return nil, s.fail(ctx, span, start, fmt.Errorf("extract imports from %s: %w", file.Path, err))
	}

	if mode == imports.ModeFallback {
		s.logger.InfoContext(ctx, "syntax error, falling back to line patterns", "path", file.Path)
	}

	external := deps.Classify(record.All(), s.catalog)
	command, _ := s.pm.InstallCommand(external)

	res := &Result{
		Source:   file.Path,
		Language: file.Language,
		Mode:     mode,
		Record:   record,
		External: external,
		Python:   s.catalog.Version(),
		Command:  command,
	}

	span.SetAttributes(
		attribute.String(attrMode, string(mode)),
		attribute.String(attrPython, res.Python),
		attribute.Int(attrExternal, len(external)),
	)

	s.metrics.Record(ctx, observability.ScanStats{
		Mode:     string(mode),
		Python:   res.Python,
		External: len(external),
		Duration: time.Since(start),
	})

	s.logger.DebugContext(ctx, "scan complete",
		"path", res.Source,
		"mode", string(mode),
		"imports", len(record.All()),
		"external", len(external),
	)

	return res, nil
}

func (s *Scanner) fail(ctx context.Context, span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	s.metrics.Record(ctx, observability.ScanStats{
		Python:   s.catalog.Version(),
		Duration: time.Since(start),
		Err:      err,
	})

	return err
}

// NamesOnly returns the installable names space-joined.
func (s *Scanner) NamesOnly(res *Result) string {
	return s.pm.NamesOnly(res.External)
}

// Report converts the result into its rendered form.
func (r *Result) Report() deps.Report {
	return deps.Report{
		Source:   r.Source,
		Language: r.Language,
		Mode:     string(r.Mode),
		Python:   r.Python,
		Imports:  r.Record.All().Sorted(),
		External: r.External,
		Command:  r.Command,
	}
}
