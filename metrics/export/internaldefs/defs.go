package internaldefs

import (
	"strconv"

	"github.com/iancoleman/strcase"

	goSession "github.com/zyraxfit/goSession"
)

const namespace = "gosession"

// Def names one exported metric.
type Def struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in exposition order.
var CounterDefs = []Def{
	counter(goSession.MetricLoginSuccess, "LoginSuccess", "Successful logins."),
	counter(goSession.MetricLoginFailure, "LoginFailure", "Failed logins."),
	counter(goSession.MetricLoginDeviceLimit, "LoginDeviceLimit", "Logins rejected at the device limit."),
	counter(goSession.MetricRefreshSuccess, "RefreshSuccess", "Successful access token refreshes."),
	counter(goSession.MetricRefreshFailure, "RefreshFailure", "Failed access token refreshes."),
	counter(goSession.MetricRefreshShared, "RefreshShared", "Callers that joined a refresh already in flight."),
	counter(goSession.MetricRequestRetried, "RequestRetried", "API requests retried after a 401."),
	counter(goSession.MetricStaleTokenRetry, "StaleTokenRetry", "Retries that reused a token refreshed by another request."),
	counter(goSession.MetricSessionExpired, "SessionExpired", "Sessions ended by a failed refresh."),
	counter(goSession.MetricLogout, "Logout", "Logouts."),
	counter(goSession.MetricRestoreAuthenticated, "RestoreAuthenticated", "Startup restores that found a usable session."),
	counter(goSession.MetricRestoreExpired, "RestoreExpired", "Startup restores that discarded an expired session."),
}

// RefreshLatency is the only engine histogram.
var RefreshLatency = Def{
	ID:   goSession.MetricRefreshLatency,
	Name: MetricName("RefreshLatencySeconds"),
	Help: "Refresh exchange latency in seconds.",
}

// AuditDropped is read from the dispatcher rather than the metric snapshot; its ID is unused.
var AuditDropped = Def{
	Name: CounterName("AuditDropped"),
	Help: "Audit events dropped under dispatcher backpressure.",
}

// LatencyBuckets are the finite upper bounds, in seconds, of the engine's
// latency buckets. The last engine bucket is unbounded.
var LatencyBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

const bucketCount = 8

// BucketLabel formats the upper bound of bucket i as Prometheus prints le.
func BucketLabel(i int) string {
	if i >= len(LatencyBuckets) {
		return "+Inf"
	}
	return strconv.FormatFloat(LatencyBuckets[i], 'g', -1, 64)
}

// MetricName returns the namespaced snake_case name of key.
func MetricName(key string) string {
	return namespace + "_" + strcase.ToSnake(key)
}

// CounterName returns MetricName(key) with the _total suffix.
func CounterName(key string) string {
	return MetricName(key) + "_total"
}

func counter(id goSession.MetricID, key, help string) Def {
	return Def{ID: id, Name: CounterName(key), Help: help}
}

// CumulativeBuckets turns snapshot bucket counts into running totals. Missing
// buckets count as zero and extra ones are ignored; the last entry is the sample count.
func CumulativeBuckets(raw []uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
