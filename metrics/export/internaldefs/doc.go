// Package internaldefs holds the metric names and bucket bounds shared by the
// Prometheus and OTel exporters.
//
// Names are derived from CamelCase keys as gosession_<snake_key>_total for counters
// and gosession_refresh_latency_seconds for the refresh histogram. Changing a
// definition here changes every exporter.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
