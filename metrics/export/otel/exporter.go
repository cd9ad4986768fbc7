package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names that differ from the flat counter names.
const (
	RejectionsName    = "instantauth_context_rejections_total"
	LatencyBucketName = "instantauth_context_latency_seconds_bucket"
	LatencyCountName  = "instantauth_context_latency_seconds_count"
)

const (
	reasonKey = attribute.Key("reason")
	leKey     = attribute.Key("le")
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("otel: nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("otel: nil metrics source")
)

// MetricsSource is the read side of an engine.
type MetricsSource interface {
	MetricsSnapshot() instantauth.MetricsSnapshot
	AuditDropped() uint64
}

type flowCounter struct {
	id         instantauth.MetricID
	instrument metric.Int64ObservableCounter
}

type rejectReason struct {
	id     instantauth.MetricID
	reason metric.ObserveOption
}

// Exporter observes one engine per collection. Flow outcomes are flat
// counters; per-cause rejections share RejectionsName with a "reason"
// attribute, and latency buckets share LatencyBucketName with an "le"
// attribute holding the upper bound in seconds.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	flows        []flowCounter
	rejections   metric.Int64ObservableCounter
	reasons      []rejectReason
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	bounds       [8]metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *instantauth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments on meter that read from source.
func NewExporterFromSource(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		if def.Reason != "" {
			e.reasons = append(e.reasons, rejectReason{
				id:     def.ID,
				reason: metric.WithAttributes(reasonKey.String(def.Reason)),
			})
			continue
		}
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.flows = append(e.flows, flowCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	var err error
	e.rejections, err = meter.Int64ObservableCounter(RejectionsName,
		metric.WithDescription("Authenticated blobs rejected, by the stage that refused them."))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", RejectionsName, err)
	}

	e.latency, err = meter.Int64ObservableGauge(LatencyBucketName,
		metric.WithDescription("GetContext calls finishing within le seconds."),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("otel: gauge %s: %w", LatencyBucketName, err)
	}
	e.latencyCount, err = meter.Int64ObservableGauge(LatencyCountName,
		metric.WithDescription("GetContext calls timed."),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("otel: gauge %s: %w", LatencyCountName, err)
	}
	for i, bound := range internaldefs.HistogramUpperBounds {
		e.bounds[i] = metric.WithAttributes(leKey.String(strconv.FormatFloat(bound, 'g', -1, 64)))
	}
	e.bounds[len(e.bounds)-1] = metric.WithAttributes(leKey.String("+Inf"))

	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}

	observables = append(observables, e.rejections, e.latency, e.latencyCount, e.auditDropped)
	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

// observe reads one snapshot so every instrument in a collection agrees.
func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.flows {
		o.ObserveInt64(c.instrument, int64(snap.Counters[c.id]))
	}
	for _, r := range e.reasons {
		o.ObserveInt64(e.rejections, int64(snap.Counters[r.id]), r.reason)
	}

	if raw, ok := snap.Histograms[instantauth.MetricContextLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(e.latency, int64(n), e.bounds[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. It is safe on a nil exporter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
