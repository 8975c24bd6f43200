// Package otel reports engine metrics through OpenTelemetry observable instruments.
//
// [NewExporter] registers one callback that reads [goSession.Engine.MetricsSnapshot]
// on each collection cycle. Refresh latency buckets share a single counter and
// are told apart by the le attribute.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
