package instantauth

import (
	"context"
	"time"
)

const (
	auditEventFirstContext     = "first_context"
	auditEventFirstRejected    = "first_context_rejected"
	auditEventContextAccepted  = "context_accepted"
	auditEventContextRejected  = "context_rejected"
	auditEventBlobBuilt        = "blob_built"
	auditEventBlobBuildFailure = "blob_build_failed"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, reason string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Reason:    reason,
	}
	if reason != "" {
		event.Metadata = map[string]string{"reason": reason}
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) now() time.Time {
	if e != nil && e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
