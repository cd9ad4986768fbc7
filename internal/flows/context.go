package flows

import (
	"context"
	"errors"
)

var errNilSession = errors.New("session handler returned nil session")

// FailureKind classifies read-flow rejections for root-level mapping. Every
// kind other than FailureNone surfaces to callers as the same error.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureMalformed
	FailureNoPublicKey
	FailureUnknownSession
	FailureKeyUnavailable
	FailureVerify
	FailureDecrypt
	FailureDecode
)

// String returns the stable reason label used in metrics and audit metadata.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureNoPublicKey:
		return "no_public_key"
	case FailureUnknownSession:
		return "unknown_session"
	case FailureKeyUnavailable:
		return "key_unavailable"
	case FailureVerify:
		return "verify_failed"
	case FailureDecrypt:
		return "decrypt_failed"
	case FailureDecode:
		return "decode_failed"
	default:
		return "unknown"
	}
}

// ContextResult returns either the decoded context parts or a classified
// failure. Err carries the collaborator error for logging only.
type ContextResult struct {
	Failure   FailureKind
	Err       error
	Session   any
	Data      any
	PublicKey string
	// HasPublicKey reports whether the verifier segment yielded a key at all.
	HasPublicKey bool
}

type opened struct {
	verifier  []byte
	rest      []byte
	publicKey string
	ok        bool
}

// open peels the layers shared by both read flows: wire armor, global
// encryption, the verifier split and the untrusted public key.
func open(blob []byte, deps Deps) (opened, ContextResult) {
	raw := blob
	if deps.Wire != nil {
		unwrapped, err := deps.Wire.Unwrap(blob)
		if err != nil {
			return opened{}, ContextResult{Failure: FailureMalformed, Err: err}
		}
		raw = unwrapped
	}

	decrypted, err := deps.Cryptor.DecryptGlobal(raw, deps.SecretKey)
	if err != nil {
		return opened{}, ContextResult{Failure: FailureMalformed, Err: err}
	}

	verifier, rest, err := deps.Verifier.DivideVerifierData(decrypted, deps.SecretKey)
	if err != nil {
		return opened{}, ContextResult{Failure: FailureMalformed, Err: err}
	}

	publicKey, ok := deps.Verifier.PublicKeyFromVerifier(verifier, deps.SecretKey)
	return opened{
		verifier:  verifier,
		rest:      rest,
		publicKey: publicKey,
		ok:        ok && publicKey != "",
	}, ContextResult{}
}

// RunFirstContext runs the bootstrap flow. The public key is extracted without
// confirmation and the data segment is decrypted with the shared secret used as
// both secret and key, since no session key exists yet. The session handler is
// never consulted.
func RunFirstContext(blob []byte, deps Deps) ContextResult {
	o, fail := open(blob, deps)
	if fail.Failure != FailureNone {
		return fail
	}

	payload, err := deps.Cryptor.DecryptData(o.rest, deps.SecretKey, deps.SecretKey)
	if err != nil {
		return ContextResult{Failure: FailureDecrypt, Err: err}
	}

	data, err := deps.Coder.Decode(payload)
	if err != nil {
		return ContextResult{Failure: FailureDecode, Err: err}
	}

	return ContextResult{
		Data:         data,
		PublicKey:    o.publicKey,
		HasPublicKey: o.ok,
	}
}

// RunContext runs the authenticated flow. Identity is read from the blob before
// any trust decision, and the verifier is confirmed against the resolved
// session's private key before the data segment is decrypted.
func RunContext(ctx context.Context, blob []byte, deps Deps) ContextResult {
	o, fail := open(blob, deps)
	if fail.Failure != FailureNone {
		return fail
	}
	if !o.ok {
		return ContextResult{Failure: FailureNoPublicKey}
	}

	sess, err := deps.Sessions.SessionFromPublicKey(ctx, o.publicKey)
	if err != nil {
		return ContextResult{Failure: FailureUnknownSession, Err: err}
	}
	if isNilSession(sess) {
		return ContextResult{Failure: FailureUnknownSession, Err: errNilSession}
	}

	privateKey, err := deps.Sessions.PrivateKey(sess)
	if err != nil {
		return ContextResult{Failure: FailureKeyUnavailable, Err: err}
	}

	if !deps.Verifier.Verify(o.verifier, privateKey, deps.SecretKey) {
		return ContextResult{Failure: FailureVerify}
	}

	payload, err := deps.Cryptor.DecryptData(o.rest, deps.SecretKey, privateKey)
	if err != nil {
		return ContextResult{Failure: FailureDecrypt, Err: err}
	}

	data, err := deps.Coder.Decode(payload)
	if err != nil {
		return ContextResult{Failure: FailureDecode, Err: err}
	}

	return ContextResult{
		Session:      sess,
		Data:         data,
		PublicKey:    o.publicKey,
		HasPublicKey: true,
	}
}

// isNilSession treats untyped nil and the common empty shapes (nil pointer,
// nil or empty map) as "no session".
func isNilSession(sess any) bool {
	switch s := sess.(type) {
	case nil:
		return true
	case map[string]any:
		return len(s) == 0
	case map[string]string:
		return len(s) == 0
	case string:
		return s == ""
	}
	return isNilPointer(sess)
}
