package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "pydeps.requests.total"
	metricRequestDuration  = "pydeps.request.duration.seconds"
	metricErrorsTotal      = "pydeps.errors.total"
	metricInflightRequests = "pydeps.inflight.requests"

	metricScansTotal     = "pydeps.scans.total"
	metricScanDuration   = "pydeps.scan.duration.seconds"
	metricFallbacksTotal = "pydeps.scan.fallbacks.total"
	metricExternalFound  = "pydeps.scan.external.total"

	attrOp        = "op"
	attrStatus    = "status"
	attrScanMode  = "extraction"
	attrPyVersion = "python"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// requestBuckets covers 1ms to 10s; single-file scans are fast.
var requestBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// REDMetrics holds Rate, Error, Duration instruments for MCP tool calls.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// ScanMetrics holds instruments for dependency scans.
type ScanMetrics struct {
	scansTotal    metric.Int64Counter
	scanDuration  metric.Float64Histogram
	fallbacks     metric.Int64Counter
	externalFound metric.Int64Counter
}

// ScanStats describes one finished scan.
type ScanStats struct {
	Mode     string
	Python   string
	External int
	Duration time.Duration
	Err      error
}

// NewScanMetrics creates scan instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	scans, err := mt.Int64Counter(metricScansTotal,
		metric.WithDescription("Total scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScansTotal, err)
	}

	duration, err := mt.Float64Histogram(metricScanDuration,
		metric.WithDescription("Scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanDuration, err)
	}

	fallbacks, err := mt.Int64Counter(metricFallbacksTotal,
		metric.WithDescription("Scans that fell back to line patterns"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFallbacksTotal, err)
	}

	external, err := mt.Int64Counter(metricExternalFound,
		metric.WithDescription("External libraries reported"),
		metric.WithUnit("{library}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExternalFound, err)
	}

	return &ScanMetrics{
		scansTotal:    scans,
		scanDuration:  duration,
		fallbacks:     fallbacks,
		externalFound: external,
	}, nil
}

// Record records one scan. A nil receiver records nothing.
func (sm *ScanMetrics) Record(ctx context.Context, stats ScanStats) {
	if sm == nil {
		return
	}

	status := StatusOK
	if stats.Err != nil {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrScanMode, stats.Mode),
		attribute.String(attrPyVersion, stats.Python),
		attribute.String(attrStatus, status),
	)

	sm.scansTotal.Add(ctx, 1, attrs)
	sm.scanDuration.Record(ctx, stats.Duration.Seconds(), attrs)

	if stats.Err != nil {
		return
	}

	if stats.Mode == "fallback" {
		sm.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String(attrPyVersion, stats.Python)))
	}

	sm.externalFound.Add(ctx, int64(stats.External), metric.WithAttributes(attribute.String(attrPyVersion, stats.Python)))
}
