package goSession

import (
	"context"

	"github.com/zyraxfit/goSession/api"
)

// WithRequestID attaches a request ID to ctx. Backend calls made with ctx send it in
// Config.HTTP.RequestIDHeader, and audit events record it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return api.WithRequestIDContext(ctx, id)
}

// RequestIDFromContext returns the request ID attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	return api.RequestID(ctx)
}
