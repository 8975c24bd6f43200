package prometheus

import (
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	goSession "github.com/zyraxfit/goSession"
	"github.com/zyraxfit/goSession/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goSession.MetricID
	desc *promclient.Desc
}

// Collector exposes engine metrics to a client_golang registry. It reads one
// snapshot per scrape and emits const metrics, so it holds no state of its own.
type Collector struct {
	source  metricsSource
	counter []counterDesc
	latency *promclient.Desc
	dropped *promclient.Desc
}

// NewCollector returns a Collector reading from engine.
func NewCollector(engine *goSession.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:  source,
		counter: make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		latency: promclient.NewDesc(internaldefs.RefreshLatency.Name, internaldefs.RefreshLatency.Help, nil, nil),
		dropped: promclient.NewDesc(internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counter = append(c.counter, counterDesc{id: def.ID, desc: promclient.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

// Handler serves source and any extra collectors from a private registry.
func Handler(source metricsSource, extra ...promclient.Collector) http.Handler {
	registry := promclient.NewRegistry()
	registry.MustRegister(NewCollectorFromSource(source))
	registry.MustRegister(extra...)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func (c *Collector) Describe(ch chan<- *promclient.Desc) {
	for _, m := range c.counter {
		ch <- m.desc
	}
	ch <- c.latency
	ch <- c.dropped
}

// Collect emits nothing while metrics are disabled and no audit event was dropped.
func (c *Collector) Collect(ch chan<- promclient.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	dropped := c.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, m := range c.counter {
		ch <- promclient.MustNewConstMetric(m.desc, promclient.CounterValue, float64(snapshot.Counters[m.id]))
	}

	if raw, ok := snapshot.Histograms[internaldefs.RefreshLatency.ID]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		buckets := make(map[float64]uint64, len(internaldefs.LatencyBuckets))
		for i, bound := range internaldefs.LatencyBuckets {
			buckets[bound] = cumulative[i]
		}
		// snapshots carry bucket counts only
		ch <- promclient.MustNewConstHistogram(c.latency, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- promclient.MustNewConstMetric(c.dropped, promclient.CounterValue, float64(dropped))
}
