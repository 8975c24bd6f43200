package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event records one session lifecycle transition. Token values are never recorded.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Actor     string            `json:"actor"`
	Username  string            `json:"username,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink is called from the dispatcher goroutine, one event at a time.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink queues events for a reader. Emit waits for room until ctx is done.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink encodes each event as one JSON line. Encode errors are dropped.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// NewLoggerSink writes events as info entries; a logger above info level drops them.
func NewLoggerSink(logger *zap.Logger) Sink {
	if logger == nil {
		return NoOpSink{}
	}
	logger = logger.Named("audit")
	return SinkFunc(func(_ context.Context, event Event) {
		fields := []zap.Field{
			zap.String("id", event.ID),
			zap.Time("timestamp", event.Timestamp),
			zap.String("actor", event.Actor),
			zap.Bool("success", event.Success),
		}
		if event.Username != "" {
			fields = append(fields, zap.String("username", event.Username))
		}
		if event.RequestID != "" {
			fields = append(fields, zap.String("request_id", event.RequestID))
		}
		if event.Error != "" {
			fields = append(fields, zap.String("error_code", event.Error))
		}
		if len(event.Metadata) > 0 {
			fields = append(fields, zap.Any("metadata", event.Metadata))
		}
		logger.Info(event.EventType, fields...)
	})
}
