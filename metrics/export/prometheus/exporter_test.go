package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/instantauth"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot instantauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() instantauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func scrape(t *testing.T, exp *Exporter) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestExporterRendersCountersAndHistogram(t *testing.T) {
	exp, err := NewExporterFromSource(fakeSource{
		snapshot: instantauth.MetricsSnapshot{
			Counters: map[instantauth.MetricID]uint64{
				instantauth.MetricContextSuccess: 7,
				instantauth.MetricRejectVerify:   2,
			},
			Histograms: map[instantauth.MetricID][]uint64{
				instantauth.MetricContextLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})
	require.NoError(t, err)

	out := scrape(t, exp)
	require.Contains(t, out, "instantauth_context_success_total 7")
	require.Contains(t, out, "instantauth_reject_verify_total 2")
	require.Contains(t, out, `instantauth_context_latency_seconds_bucket{le="0.005"} 1`)
	require.Contains(t, out, `instantauth_context_latency_seconds_bucket{le="+Inf"} 36`)
	require.Contains(t, out, "instantauth_context_latency_seconds_count 36")
	require.Contains(t, out, "instantauth_audit_dropped_total 2")
}

func TestCollectorGathersEverySeries(t *testing.T) {
	exp, err := NewExporterFromSource(fakeSource{
		snapshot: instantauth.MetricsSnapshot{
			Counters:   map[instantauth.MetricID]uint64{},
			Histograms: map[instantauth.MetricID][]uint64{},
		},
	})
	require.NoError(t, err)

	families, err := exp.Registry().Gather()
	require.NoError(t, err)

	// 13 counters, the latency histogram and the audit drop counter.
	require.Len(t, families, 15)
	for _, mf := range families {
		if strings.HasSuffix(mf.GetName(), "_seconds") {
			require.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
			continue
		}
		require.Equal(t, dto.MetricType_COUNTER, mf.GetType())
		require.Zero(t, mf.GetMetric()[0].GetCounter().GetValue())
	}
}

func TestExporterReadsLiveEngine(t *testing.T) {
	cfg := instantauth.DefaultConfig()
	cfg.SecretKey = "SECRET"
	cfg.Metrics.Enabled = true
	engine, err := instantauth.New().
		WithConfig(cfg).
		WithSessionHandler(nopSessions{}).
		Build()
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.GetContext(t.Context(), []byte("garbage"))
	require.ErrorIs(t, err, instantauth.ErrAuthentication)

	exp, err := NewExporter(engine)
	require.NoError(t, err)
	out := scrape(t, exp)
	require.Contains(t, out, "instantauth_context_rejected_total 1")
	require.Contains(t, out, "instantauth_reject_malformed_total 1")
}

type nopSessions struct{}

func (nopSessions) SessionFromPublicKey(context.Context, string) (instantauth.Session, error) {
	return nil, nil
}
func (nopSessions) PrivateKey(instantauth.Session) (string, error) { return "", nil }
func (nopSessions) PublicKey(instantauth.Session) (string, error)  { return "", nil }
