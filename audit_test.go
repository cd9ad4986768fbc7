package instantauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/verifier"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type gateSink struct {
	gate    chan struct{}
	emitted atomic.Int64
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
	s.emitted.Add(1)
}

func auditConfig(buffer int) Config {
	cfg := DefaultConfig()
	cfg.SecretKey = testSecret
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = buffer
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for audit event")
	}
	return AuditEvent{}
}

func TestAuditEventsForEachFlow(t *testing.T) {
	sink := NewChannelSink(16)
	handler := newTestSessionHandler()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := buildTestEngine(t, New().
		WithConfig(auditConfig(16)).
		WithAuditSink(sink).
		WithClock(func() time.Time { return now }).
		WithVerifier(verifier.BypassVerifier{}).
		WithCoder(coder.SimpleURLQueryCoder{}).
		WithSessionHandler(handler))

	ctx := WithRequestID(WithClientIP(context.Background(), "10.0.0.1"), "req-1")

	if _, err := engine.GetContext(ctx, []byte("a=b")); err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.EventType != auditEventContextAccepted || !ev.Success || ev.IP != "10.0.0.1" || ev.RequestID != "req-1" {
		t.Fatalf("unexpected accepted event %+v", ev)
	}
	if !ev.Timestamp.Equal(now) {
		t.Fatalf("expected injected clock timestamp, got %v", ev.Timestamp)
	}

	handler.lookup = func(string) (Session, error) { return nil, errNoSuchSession }
	_, _ = engine.GetContext(ctx, []byte("a=b"))
	ev = nextEvent(t, sink)
	if ev.EventType != auditEventContextRejected || ev.Success || ev.Reason != "unknown_session" {
		t.Fatalf("unexpected rejected event %+v", ev)
	}
	if ev.Metadata["reason"] != "unknown_session" {
		t.Fatalf("expected reason metadata, got %v", ev.Metadata)
	}

	if _, err := engine.BuildData(ctx, "sess", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("BuildData failed: %v", err)
	}
	if ev = nextEvent(t, sink); ev.EventType != auditEventBlobBuilt {
		t.Fatalf("expected blob_built, got %+v", ev)
	}

	if _, err := engine.GetFirstContext(ctx, []byte("a=b")); err != nil {
		t.Fatalf("GetFirstContext failed: %v", err)
	}
	if ev = nextEvent(t, sink); ev.EventType != auditEventFirstContext {
		t.Fatalf("expected first_context, got %+v", ev)
	}
}

func TestAuditDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked sink and buffer of 1")
	}

	close(sink.gate)
	d.Close()
	d.Close()

	if got := uint64(sink.emitted.Load()) + d.Dropped(); got != 10 {
		t.Fatalf("every event must be either delivered or dropped, got %d", got)
	}
}

func TestAuditDisabledDispatcherIsNil(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatalf("expected nil dispatcher when audit disabled")
	}
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher should report zero drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{EventType: "context_rejected", Reason: "verify_failed"})
	sink.Emit(context.Background(), AuditEvent{EventType: "blob_built", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if ev.Reason != "verify_failed" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLogrusSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogrusSink(logger)

	sink.Emit(context.Background(), AuditEvent{EventType: "context_rejected", Reason: "verify_failed", IP: "1.2.3.4"})
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warn entry, got %+v", entry)
	}
	if entry.Data["reason"] != "verify_failed" || entry.Data["ip"] != "1.2.3.4" {
		t.Fatalf("unexpected fields %v", entry.Data)
	}

	sink.Emit(context.Background(), AuditEvent{EventType: "blob_built", Success: true})
	if hook.LastEntry().Level != logrus.InfoLevel {
		t.Fatalf("successful events should log at info")
	}
}

func TestRejectionDebugLogOmitsSecrets(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	handler := newTestSessionHandler()
	engine := buildTestEngine(t, New().
		WithLogger(logger).
		WithVerifier(&verifier.TimeHashVerifier{}).
		WithCoder(coder.SimpleURLQueryCoder{}).
		WithSessionHandler(handler))

	blob, err := engine.BuildData(context.Background(), "sess", map[string]string{"card": "4111"})
	if err != nil {
		t.Fatalf("BuildData failed: %v", err)
	}
	handler.privateKey = "other"
	_, _ = engine.GetContext(WithRequestID(context.Background(), "req-9"), blob)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a debug entry for the rejection")
	}
	if entry.Data["reason"] != "verify_failed" || entry.Data["function"] != "GetContext" || entry.Data["request_id"] != "req-9" {
		t.Fatalf("unexpected fields %v", entry.Data)
	}
	for _, e := range hook.AllEntries() {
		line, _ := e.String()
		for _, secret := range []string{testSecret, "private_key", "other", "4111"} {
			if strings.Contains(line, secret) {
				t.Fatalf("log line leaks %q: %s", secret, line)
			}
		}
	}
}
