package instantauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/verifier"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricContextSuccess)

	if got := m.Value(MetricContextSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricContextRejected)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricContextRejected); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		time.Millisecond,
		7 * time.Millisecond,
		20 * time.Millisecond,
		time.Second,
	} {
		m.Observe(MetricContextLatency, d)
	}
	m.Observe(MetricContextSuccess, time.Millisecond)

	snap := m.Snapshot()
	got := snap.Histograms[MetricContextLatency]
	want := []uint64{1, 1, 1, 0, 0, 0, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if _, ok := snap.Counters[MetricContextLatency]; ok {
		t.Fatalf("latency histogram must not appear as a counter")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("only the latency histogram should be recorded")
	}
}

func TestEngineCountsRejectionReasons(t *testing.T) {
	handler := newTestSessionHandler()
	engine := buildTestEngine(t, New().
		WithVerifier(&verifier.TimeHashVerifier{}).
		WithCoder(coder.SimpleURLQueryCoder{}).
		WithSessionHandler(handler).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true))
	ctx := context.Background()

	blob, err := engine.BuildData(ctx, "sess", map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("BuildData failed: %v", err)
	}
	if _, err := engine.GetContext(ctx, blob); err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	_, _ = engine.GetContext(ctx, []byte("malformed"))
	_, _ = engine.GetContext(ctx, []byte("$1$2$rest"))
	handler.privateKey = "other"
	_, _ = engine.GetContext(ctx, blob)

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricBuildSuccess:      1,
		MetricContextSuccess:    1,
		MetricContextRejected:   3,
		MetricRejectMalformed:   1,
		MetricRejectNoPublicKey: 1,
		MetricRejectVerify:      1,
		MetricRejectDecode:      0,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, got)
		}
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricContextLatency] {
		observed += n
	}
	if observed != 4 {
		t.Fatalf("expected 4 latency observations, got %d", observed)
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricContextSuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricContextSuccess)
		}
	})
}
