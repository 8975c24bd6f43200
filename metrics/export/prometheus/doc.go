// Package prometheus exposes engine metrics through prometheus/client_golang.
//
// [Collector] reads [goSession.Engine.MetricsSnapshot] on every scrape and emits
// const metrics: one gosession_*_total counter per engine counter and the
// gosession_refresh_latency_seconds histogram. [Handler] mounts it, with any
// extra collectors, on a private registry.
//
// # What this package must NOT do
//
//   - Register into prometheus.DefaultRegisterer.
//   - Mutate engine state.
package prometheus
