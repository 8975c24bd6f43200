package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goSession "github.com/zyraxfit/goSession"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goSession.MetricsSnapshot{
		Counters:   make(map[goSession.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goSession.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

// collect keys bucket points as name{le}.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				key := m.Name
				if le, ok := dp.Attributes.Value(BucketKey); ok {
					key += "{" + le.AsString() + "}"
				}
				out[key] = dp.Value
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosession-test")

	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricRefreshSuccess: 3,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRefreshLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	got := collect(t, reader)
	if got["gosession_refresh_success_total"] != 3 {
		t.Fatalf("expected refresh success 3, got %v", got)
	}
	if got["gosession_refresh_latency_seconds_bucket{0.1}"] != 3 {
		t.Fatalf("expected cumulative bucket 3, got %v", got)
	}
	if got["gosession_refresh_latency_seconds_bucket{+Inf}"] != 8 {
		t.Fatalf("expected +Inf bucket 8, got %v", got)
	}
	if got["gosession_refresh_latency_seconds_count"] != 8 {
		t.Fatalf("expected histogram count 8, got %v", got)
	}
	if got["gosession_audit_dropped_total"] != 1 {
		t.Fatalf("expected audit dropped 1, got %v", got)
	}
}

func TestExporterSkipsHistogramWhenLatencyDisabled(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("gosession-test")

	exp, err := NewExporterFromSource(meter, &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{goSession.MetricLogout: 2},
		},
	})
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exp.Close()

	got := collect(t, reader)
	if got["gosession_logout_total"] != 2 {
		t.Fatalf("expected logout 2, got %v", got)
	}
	if _, ok := got["gosession_refresh_latency_seconds_count"]; ok {
		t.Fatalf("expected no histogram points, got %v", got)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosession-test")

	if _, err := NewExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosession-test")

	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricRequestRetried: 1,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRefreshLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goSession.MetricRequestRetried] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
