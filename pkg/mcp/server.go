// Package mcp implements a Model Context Protocol server exposing pydeps
// scans as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pydeps/internal/source"
	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
	"github.com/Sumatoshi-tech/pydeps/pkg/scan"
)

const (
	serverName       = "pydeps"
	toolCount        = 2
	defaultCacheSize = 128
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics records per-tool RED metrics. Nil disables them.
	Metrics *observability.REDMetrics

	// ScanMetrics records per-scan metrics. Nil disables them.
	ScanMetrics *observability.ScanMetrics

	// Tracer creates per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Python is the default catalog version. Empty means the newest.
	Python string

	// Extra names are treated as standard library in every catalog.
	Extra []string

	// PackageManager renders install commands. Zero means pip.
	PackageManager deps.PackageManager

	// Reader bounds file reads for pydeps_scan_file.
	Reader source.Reader

	// CacheSize bounds the inline scan cache. Zero uses 128.
	CacheSize int

	// Version is reported as the server implementation version.
	Version string
}

// Server wraps the MCP SDK server with pydeps tool registrations.
type Server struct {
	inner *mcpsdk.Server
	cfg   ServerDeps

	mu       sync.RWMutex
	tools    []string
	scanners map[string]*scan.Scanner

	cache *lru.Cache[string, deps.Report]
}

// NewServer creates an MCP server with all pydeps tools registered.
func NewServer(sd ServerDeps) (*Server, error) {
	if sd.Logger == nil {
		sd.Logger = slog.Default()
	}

	if sd.Python == "" {
		sd.Python = catalog.Latest()
	}

	if sd.CacheSize <= 0 {
		sd.CacheSize = defaultCacheSize
	}

	if sd.Version == "" {
		sd.Version = "dev"
	}

	_, err := catalog.ForVersion(sd.Python)
	if err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}

	cache, err := lru.New[string, deps.Report](sd.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("mcp server cache: %w", err)
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: serverName, Version: sd.Version},
		&mcpsdk.ServerOptions{Logger: sd.Logger},
	)

	srv := &Server{
		inner:    inner,
		cfg:      sd,
		tools:    make([]string, 0, toolCount),
		scanners: make(map[string]*scan.Scanner),
		cache:    cache,
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on the given transport until ctx is canceled or
// the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScan,
		Description: scanToolDescription,
	}, withMetrics(s.cfg.Metrics, ToolNameScan, withTracing(s.cfg.Tracer, ToolNameScan, s.handleScan)))

	s.trackTool(ToolNameScan)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScanFile,
		Description: scanFileToolDescription,
	}, withMetrics(s.cfg.Metrics, ToolNameScanFile, withTracing(s.cfg.Tracer, ToolNameScanFile, s.handleScanFile)))

	s.trackTool(ToolNameScanFile)
}

// scanner returns the scanner for a Python version, building it once.
func (s *Server) scanner(python string) (*scan.Scanner, error) {
	if python == "" {
		python = s.cfg.Python
	}

	s.mu.RLock()
	cached, ok := s.scanners[python]
	s.mu.RUnlock()

	if ok {
		return cached, nil
	}

	cat, err := catalog.ForVersion(python)
	if err != nil {
		return nil, err
	}

	if len(s.cfg.Extra) > 0 {
		cat = cat.With(s.cfg.Extra...)
	}

	sc, err := scan.New(scan.Options{
		Catalog:        cat,
		PackageManager: s.cfg.PackageManager,
		Reader:         s.cfg.Reader,
		Logger:         s.cfg.Logger,
		Tracer:         s.cfg.Tracer,
		Metrics:        s.cfg.ScanMetrics,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, found := s.scanners[python]; found {
		return existing, nil
	}

	s.scanners[python] = sc

	return sc, nil
}

const mcpSpanPrefix = "mcp."

// traceIDMetaKey labels the trace ID appended to sampled responses.
const traceIDMetaKey = "trace_id"

// withTracing creates a span per invocation and appends the trace ID to the
// response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String()),
			})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer done()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	scanToolDescription = "Detect the third-party libraries imported by inline Python code. " +
		"Returns the sorted external module names and a pip install command."

	scanFileToolDescription = "Detect the third-party libraries imported by a Python file. " +
		"Accepts an absolute path and an optional Python version for the standard library catalog."
)
