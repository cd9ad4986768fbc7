package internaldefs

import (
	"github.com/MrEthical07/instantauth"
)

// CounterDef binds an engine counter to its exported name. Reason is set on
// the per-cause rejection counters and matches the audit "reason" metadata.
type CounterDef struct {
	ID     instantauth.MetricID
	Name   string
	Help   string
	Reason string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   instantauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for AuditDropped.
const AuditDroppedName = "instantauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher queue was full."

// CounterDefs lists every exported engine counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: instantauth.MetricFirstContext, Name: "instantauth_first_context_total", Help: "Bootstrap blobs decoded."},
	{ID: instantauth.MetricFirstContextRejected, Name: "instantauth_first_context_rejected_total", Help: "Bootstrap blobs rejected."},
	{ID: instantauth.MetricContextSuccess, Name: "instantauth_context_success_total", Help: "Authenticated contexts returned."},
	{ID: instantauth.MetricContextRejected, Name: "instantauth_context_rejected_total", Help: "Authenticated blobs rejected for any reason."},
	{ID: instantauth.MetricRejectMalformed, Name: "instantauth_reject_malformed_total", Help: "Blobs whose outer layers could not be opened.", Reason: "malformed"},
	{ID: instantauth.MetricRejectNoPublicKey, Name: "instantauth_reject_no_public_key_total", Help: "Blobs without an extractable public key.", Reason: "no_public_key"},
	{ID: instantauth.MetricRejectUnknownSession, Name: "instantauth_reject_unknown_session_total", Help: "Public keys that resolved to no session.", Reason: "unknown_session"},
	{ID: instantauth.MetricRejectKeyUnavailable, Name: "instantauth_reject_key_unavailable_total", Help: "Sessions whose private key could not be read.", Reason: "key_unavailable"},
	{ID: instantauth.MetricRejectVerify, Name: "instantauth_reject_verify_total", Help: "Verifier segments that failed confirmation.", Reason: "verify_failed"},
	{ID: instantauth.MetricRejectDecrypt, Name: "instantauth_reject_decrypt_total", Help: "Data segments that failed to decrypt.", Reason: "decrypt_failed"},
	{ID: instantauth.MetricRejectDecode, Name: "instantauth_reject_decode_total", Help: "Payloads the coder could not decode.", Reason: "decode_failed"},
	{ID: instantauth.MetricBuildSuccess, Name: "instantauth_build_success_total", Help: "Blobs issued."},
	{ID: instantauth.MetricBuildFailure, Name: "instantauth_build_failure_total", Help: "BuildData calls that returned an error."},
}

// HistogramDefs lists every exported engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: instantauth.MetricContextLatency, Name: "instantauth_context_latency_seconds", Help: "GetContext latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for everything above the last bound.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
