package flows

import (
	"reflect"
)

// BuildFailureKind classifies write-flow failures.
type BuildFailureKind int

const (
	BuildFailureNone BuildFailureKind = iota
	BuildFailureKeys
	BuildFailureEncode
	BuildFailureEncrypt
	BuildFailureVerifier
	BuildFailureMerge
)

// String returns the stable reason label used in metrics and audit metadata.
func (k BuildFailureKind) String() string {
	switch k {
	case BuildFailureNone:
		return "none"
	case BuildFailureKeys:
		return "keys"
	case BuildFailureEncode:
		return "encode"
	case BuildFailureEncrypt:
		return "encrypt"
	case BuildFailureVerifier:
		return "verifier"
	case BuildFailureMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// BuildResult carries the issued blob or a classified failure.
type BuildResult struct {
	Failure BuildFailureKind
	Err     error
	Blob    []byte
}

// RunBuild issues a blob for an existing session. It is the exact inverse of
// RunContext: encode, encrypt with the session's private key, attach the
// verifier, encrypt globally, then armor.
//
// A coder or cryptor that reports success with a nil result is a broken
// strategy, not bad input, and RunBuild panics.
func RunBuild(session any, data any, deps Deps) BuildResult {
	privateKey, err := deps.Sessions.PrivateKey(session)
	if err != nil {
		return BuildResult{Failure: BuildFailureKeys, Err: err}
	}
	publicKey, err := deps.Sessions.PublicKey(session)
	if err != nil {
		return BuildResult{Failure: BuildFailureKeys, Err: err}
	}

	coded, err := deps.Coder.Encode(data)
	if err != nil {
		return BuildResult{Failure: BuildFailureEncode, Err: err}
	}
	if coded == nil {
		panic("instantauth: coder returned nil payload")
	}

	encrypted, err := deps.Cryptor.EncryptData(coded, deps.SecretKey, privateKey)
	if err != nil {
		return BuildResult{Failure: BuildFailureEncrypt, Err: err}
	}
	if encrypted == nil {
		panic("instantauth: cryptor returned nil data segment")
	}

	verifier, err := deps.Verifier.EncodeVerifier(privateKey, publicKey, deps.SecretKey)
	if err != nil {
		return BuildResult{Failure: BuildFailureVerifier, Err: err}
	}

	merged, err := deps.Verifier.MergeVerifierData(verifier, encrypted, deps.SecretKey)
	if err != nil {
		return BuildResult{Failure: BuildFailureMerge, Err: err}
	}

	blob, err := deps.Cryptor.EncryptGlobal(merged, deps.SecretKey)
	if err != nil {
		return BuildResult{Failure: BuildFailureEncrypt, Err: err}
	}

	if deps.Wire != nil {
		blob = deps.Wire.Wrap(blob)
	}
	return BuildResult{Blob: blob}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
