package prometheus

import (
	"net/http"

	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is the read side of an engine.
type MetricsSource interface {
	MetricsSnapshot() instantauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   instantauth.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   instantauth.MetricID
	desc *prometheus.Desc
}

// Collector implements prometheus.Collector over a MetricsSource.
type Collector struct {
	source     MetricsSource
	counters   []counterDesc
	histograms []histogramDesc
	dropped    *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		dropped:    prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range c.counters {
		ch <- def.desc
	}
	for _, def := range c.histograms {
		ch <- def.desc
	}
	ch <- c.dropped
}

// Collect implements prometheus.Collector. A disabled metrics set yields an
// empty snapshot and therefore zero-valued series.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, def := range c.counters {
		ch <- prometheus.MustNewConstMetric(def.desc, prometheus.CounterValue, float64(snapshot.Counters[def.id]))
	}

	for _, def := range c.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// The engine keeps bucket counts only, so the sum is not known.
		ch <- prometheus.MustNewConstHistogram(def.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Exporter serves a Collector from its own registry.
type Exporter struct {
	registry *prometheus.Registry
}

// NewExporter registers a collector for engine in a fresh registry.
func NewExporter(engine *instantauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource registers a collector for source in a fresh registry.
func NewExporterFromSource(source MetricsSource) (*Exporter, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(source)); err != nil {
		return nil, err
	}
	return &Exporter{registry: registry}, nil
}

// Registry returns the exporter's registry so callers can add their own
// collectors next to the engine's.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
