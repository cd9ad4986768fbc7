package instantauth

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/instantauth/internal/flows"
	"github.com/sirupsen/logrus"
)

// Engine sequences the bound strategies into the bootstrap, authenticated and
// build flows. It is created by [Builder.Build] and holds no mutable protocol
// state afterwards.
type Engine struct {
	config   Config
	env      Environment
	sessions SessionHandler
	deps     flows.Deps
	metrics  *Metrics
	audit    *auditDispatcher
	logger   logrus.FieldLogger
	clock    func() time.Time
}

// GetFirstContext runs the bootstrap flow.
//
// The public key in the returned Context is read from the blob without any
// confirmation and the data segment is decrypted with the shared secret as
// both secret and key, because no session key exists yet. Anyone holding the
// shared secret can therefore produce a bootstrap blob for any public key:
// use AuthKey only to provision a session out-of-band, never as proof of
// identity. The session handler is not consulted.
func (e *Engine) GetFirstContext(ctx context.Context, blob []byte) (*Context, error) {
	if e == nil || e.deps.Cryptor == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunFirstContext(blob, e.deps)
	if res.Failure != flows.FailureNone {
		e.metricInc(MetricFirstContextRejected)
		e.emitAudit(ctx, auditEventFirstRejected, false, res.Failure.String())
		e.logReject(ctx, "GetFirstContext", res)
		return nil, ErrAuthentication
	}

	e.metricInc(MetricFirstContext)
	e.emitAudit(ctx, auditEventFirstContext, true, "")

	return &Context{
		data:       res.Data,
		authKey:    res.PublicKey,
		hasAuthKey: res.HasPublicKey,
		attrs:      e.derived(),
	}, nil
}

// GetContext runs the authenticated flow.
//
// A returned Context implies the verifier segment was confirmed against the
// private key of the session resolved from the blob's public key. The data
// segment is never decrypted before that confirmation. Every rejection returns
// [ErrAuthentication].
func (e *Engine) GetContext(ctx context.Context, blob []byte) (*Context, error) {
	if e == nil || e.deps.Cryptor == nil {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := flows.RunContext(ctx, blob, e.deps)

	if !start.IsZero() {
		e.metrics.Observe(MetricContextLatency, time.Since(start))
	}

	if res.Failure != flows.FailureNone {
		e.metricInc(MetricContextRejected)
		e.metricInc(rejectMetric(res.Failure))
		e.emitAudit(ctx, auditEventContextRejected, false, res.Failure.String())
		e.logReject(ctx, "GetContext", res)
		return nil, ErrAuthentication
	}

	e.metricInc(MetricContextSuccess)
	e.emitAudit(ctx, auditEventContextAccepted, true, "")

	return &Context{
		session: res.Session,
		data:    res.Data,
		attrs:   e.derived(),
	}, nil
}

// BuildData issues a blob for session carrying data. Feeding the result to
// GetContext with the same session yields data back under the coder's own
// equality.
//
// Strategy errors are returned wrapped in [ErrBuildFailed] or
// [ErrSessionKeyUnavailable]. A coder or cryptor that returns a nil result
// without an error panics.
func (e *Engine) BuildData(ctx context.Context, session Session, data any) ([]byte, error) {
	if e == nil || e.deps.Cryptor == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunBuild(session, data, e.deps)
	if res.Failure != flows.BuildFailureNone {
		e.metricInc(MetricBuildFailure)
		e.emitAudit(ctx, auditEventBlobBuildFailure, false, res.Failure.String())
		if res.Failure == flows.BuildFailureKeys {
			return nil, fmt.Errorf("%w: %v", ErrSessionKeyUnavailable, res.Err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrBuildFailed, res.Failure, res.Err)
	}

	e.metricInc(MetricBuildSuccess)
	e.emitAudit(ctx, auditEventBlobBuilt, true, "")
	return res.Blob, nil
}

// Environment returns the strategies the engine was built with.
func (e *Engine) Environment() Environment {
	if e == nil {
		return Environment{}
	}
	return e.env
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) derived() map[string]any {
	return mergeDerived(e.env.Cryptor, e.env.Verifier, e.env.Coder)
}

// logReject records why a blob was rejected. Keys and payloads never reach
// the log.
func (e *Engine) logReject(ctx context.Context, function string, res flows.ContextResult) {
	if e.logger == nil {
		return
	}
	fields := logrus.Fields{
		"function": function,
		"reason":   res.Failure.String(),
	}
	if id := requestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	entry := e.logger.WithFields(fields)
	if res.Err != nil {
		entry = entry.WithError(res.Err)
	}
	entry.Debug("blob rejected")
}

func rejectMetric(kind flows.FailureKind) MetricID {
	switch kind {
	case flows.FailureMalformed:
		return MetricRejectMalformed
	case flows.FailureNoPublicKey:
		return MetricRejectNoPublicKey
	case flows.FailureUnknownSession:
		return MetricRejectUnknownSession
	case flows.FailureKeyUnavailable:
		return MetricRejectKeyUnavailable
	case flows.FailureVerify:
		return MetricRejectVerify
	case flows.FailureDecrypt:
		return MetricRejectDecrypt
	case flows.FailureDecode:
		return MetricRejectDecode
	default:
		return metricIDCount
	}
}
