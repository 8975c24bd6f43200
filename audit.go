package goSession

import (
	"io"

	"go.uber.org/zap"

	"github.com/zyraxfit/goSession/internal/audit"
)

// AuditEvent records one session lifecycle transition.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc = audit.SinkFunc

// NewLoggerAuditSink logs each event through logger under the "audit" name.
func NewLoggerAuditSink(logger *zap.Logger) AuditSink {
	return audit.NewLoggerSink(logger)
}
