package verifier

import "errors"

// DefaultAnonymousKey is the public key BypassVerifier reports when
// AnonymousKey is empty.
const DefaultAnonymousKey = "anonymous"

var (
	// ErrMalformedSegment is returned when a blob has no recognizable verifier segment.
	ErrMalformedSegment = errors.New("verifier: malformed segment")
	// ErrInvalidPublicKey is returned by EncodeVerifier for public keys the
	// segment format cannot carry.
	ErrInvalidPublicKey = errors.New("verifier: invalid public key")
)

// BypassVerifier performs no commitment. Every blob is attributed to
// AnonymousKey and always confirms, so the session handler alone decides
// whether the anonymous session exists.
type BypassVerifier struct {
	AnonymousKey string
}

func (v BypassVerifier) anonymousKey() string {
	if v.AnonymousKey == "" {
		return DefaultAnonymousKey
	}
	return v.AnonymousKey
}

// DivideVerifierData returns an empty segment and the whole blob.
func (BypassVerifier) DivideVerifierData(blob []byte, _ string) ([]byte, []byte, error) {
	return nil, blob, nil
}

// MergeVerifierData drops the segment.
func (BypassVerifier) MergeVerifierData(_, rest []byte, _ string) ([]byte, error) {
	out := make([]byte, len(rest))
	copy(out, rest)
	return out, nil
}

// PublicKeyFromVerifier always reports the anonymous key.
func (v BypassVerifier) PublicKeyFromVerifier(_ []byte, _ string) (string, bool) {
	return v.anonymousKey(), true
}

// EncodeVerifier returns an empty segment.
func (BypassVerifier) EncodeVerifier(_, _, _ string) ([]byte, error) {
	return []byte{}, nil
}

// Verify always confirms.
func (BypassVerifier) Verify(_ []byte, _, _ string) bool {
	return true
}

// DerivedContext implements instantauth.DerivedContexter.
func (BypassVerifier) DerivedContext() map[string]any {
	return map[string]any{"verifier": "bypass"}
}
