package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{}, nil)
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected nil dispatcher to report zero drops")
	}
}

func TestDispatcherStampsIDAndTimestamp(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, nil)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "login_success", Actor: "admin"})

	select {
	case event := <-sink.Events():
		if _, err := uuid.Parse(event.ID); err != nil {
			t.Fatalf("expected uuid event id, got %q", event.ID)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, zap.New(core))
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	d.Emit(context.Background(), Event{EventType: "e4"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected a single drop warning, got %d", logs.Len())
	}
}

func TestBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink, nil)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		ID:        "e-1",
		Timestamp: time.Now().UTC(),
		EventType: "logout",
		Actor:     "tutor",
		Username:  "coach",
		Success:   true,
	})
	sink.Emit(context.Background(), Event{ID: "e-2", EventType: "session_expired", Actor: "tutor"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	var first Event
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if first.EventType != "logout" || first.Actor != "tutor" || first.Username != "coach" {
		t.Fatalf("unexpected event %+v", first)
	}
}

func TestLoggerSinkWritesStructuredEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLoggerSink(zap.New(core))

	sink.Emit(context.Background(), Event{
		ID:        "e-3",
		EventType: "login_failure",
		Actor:     "admin",
		Username:  "coach",
		Error:     "device_limit",
	})

	entries := logs.FilterMessage("login_failure").All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].LoggerName != "audit" || fields["actor"] != "admin" || fields["error_code"] != "device_limit" {
		t.Fatalf("unexpected entry %s %v", entries[0].LoggerName, fields)
	}
	if _, ok := fields["request_id"]; ok {
		t.Fatal("expected empty request id to be omitted")
	}

	if _, ok := NewLoggerSink(nil).(NoOpSink); !ok {
		t.Fatal("expected nil logger to yield a no-op sink")
	}
}

func TestCloseIdempotentAndDeliversQueued(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink, nil)

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e3"})

	if got := sink.count.Load(); got != 2 {
		t.Fatalf("expected queued events to be delivered before close returns, got %d", got)
	}
}
