package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goSession "github.com/zyraxfit/goSession"
	"github.com/zyraxfit/goSession/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// BucketKey labels the cumulative refresh latency bucket points.
const BucketKey = attribute.Key("le")

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter reports engine metrics from one meter callback.
type Exporter struct {
	registration metric.Registration
}

// NewExporter registers observable instruments for engine on meter.
func NewExporter(meter metric.Meter, engine *goSession.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers observable instruments for source on meter.
//
// Engine counters become Int64ObservableCounters. The refresh latency histogram is
// reported as one counter of cumulative bucket totals labelled by [BucketKey]
// plus a _count counter, since OTel has no observable histogram.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	counters := make(map[goSession.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs))
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+3)
	newCounter := func(name, help string) (metric.Int64ObservableCounter, error) {
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", name, err)
		}
		observables = append(observables, ins)
		return ins, nil
	}

	for _, def := range internaldefs.CounterDefs {
		ins, err := newCounter(def.Name, def.Help)
		if err != nil {
			return nil, err
		}
		counters[def.ID] = ins
	}
	buckets, err := newCounter(internaldefs.RefreshLatency.Name+"_bucket", internaldefs.RefreshLatency.Help)
	if err != nil {
		return nil, err
	}
	samples, err := newCounter(internaldefs.RefreshLatency.Name+"_count", "Refresh exchanges observed.")
	if err != nil {
		return nil, err
	}
	dropped, err := newCounter(internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help)
	if err != nil {
		return nil, err
	}

	labels := make([]metric.ObserveOption, len(internaldefs.LatencyBuckets)+1)
	for i := range labels {
		labels[i] = metric.WithAttributes(BucketKey.String(internaldefs.BucketLabel(i)))
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		for id, ins := range counters {
			observer.ObserveInt64(ins, int64(snapshot.Counters[id]))
		}
		if raw, ok := snapshot.Histograms[internaldefs.RefreshLatency.ID]; ok {
			cumulative := internaldefs.CumulativeBuckets(raw)
			for i, total := range cumulative {
				observer.ObserveInt64(buckets, int64(total), labels[i])
			}
			observer.ObserveInt64(samples, int64(cumulative[len(cumulative)-1]))
		}
		observer.ObserveInt64(dropped, int64(source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &Exporter{registration: registration}, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
