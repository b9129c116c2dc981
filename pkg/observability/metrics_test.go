package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
)

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	reader, mp := newReader(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "pydeps_scan", observability.StatusOK, 10*time.Millisecond)
	red.RecordRequest(ctx, "pydeps_scan", observability.StatusError, time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "pydeps.requests.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "pydeps.errors.total")))
	assert.NotNil(t, findMetric(rm, "pydeps.request.duration.seconds"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	reader, mp := newReader(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "pydeps_scan_file")
	assert.Equal(t, int64(1), sumOf(t, findMetric(collectMetrics(t, reader), "pydeps.inflight.requests")))

	done()
	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "pydeps.inflight.requests")))
}

func TestScanMetrics_Record(t *testing.T) {
	t.Parallel()

	reader, mp := newReader(t)

	sm, err := observability.NewScanMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	sm.Record(ctx, observability.ScanStats{Mode: "structural", Python: "3.12", External: 2, Duration: time.Millisecond})
	sm.Record(ctx, observability.ScanStats{Mode: "fallback", Python: "3.12", External: 1, Duration: time.Millisecond})
	sm.Record(ctx, observability.ScanStats{Python: "3.12", Err: errors.New("boom")})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "pydeps.scans.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "pydeps.scan.fallbacks.total")))
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "pydeps.scan.external.total")))
	assert.NotNil(t, findMetric(rm, "pydeps.scan.duration.seconds"))
}

func TestScanMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var sm *observability.ScanMetrics

	assert.NotPanics(t, func() {
		sm.Record(context.Background(), observability.ScanStats{Mode: "structural"})
	})
}

func TestMetrics_WithNoopProviders(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	sm, err := observability.NewScanMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "op", observability.StatusOK, time.Millisecond)
	sm.Record(context.Background(), observability.ScanStats{Mode: "structural", Python: "3.13"})
}
