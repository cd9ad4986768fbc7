package instantauth

import "context"

// Session is an opaque session record owned by a [SessionHandler]. The engine
// only passes it back to the handler that produced it.
type Session = any

// Coder converts application data to a flat payload and back.
//
// Encode must return a non-nil payload when it returns a nil error; an empty
// payload is []byte{}. Decode(Encode(v)) must equal v under the coder's own
// equality for every value the application considers valid.
type Coder interface {
	Encode(data any) ([]byte, error)
	Decode(payload []byte) (any, error)
}

// Cryptor performs symmetric encryption at two granularities. The global
// variant is keyed by the shared secret only; the data variant is additionally
// keyed by a per-session key. Decrypting input that was not produced under the
// same keys must fail with an error, never return garbage.
type Cryptor interface {
	EncryptGlobal(blob []byte, secretKey string) ([]byte, error)
	DecryptGlobal(blob []byte, secretKey string) ([]byte, error)
	EncryptData(payload []byte, secretKey, key string) ([]byte, error)
	DecryptData(payload []byte, secretKey, key string) ([]byte, error)
}

// Verifier produces and consumes the verifier segment that commits to a
// (private key, public key, secret) triple.
//
// PublicKeyFromVerifier must work without the private key; it is called before
// any session is resolved and its result is untrusted. Verify is the only
// confirmation gate.
type Verifier interface {
	DivideVerifierData(blob []byte, secretKey string) (verifier, rest []byte, err error)
	MergeVerifierData(verifier, rest []byte, secretKey string) ([]byte, error)
	PublicKeyFromVerifier(verifier []byte, secretKey string) (string, bool)
	EncodeVerifier(privateKey, publicKey, secretKey string) ([]byte, error)
	Verify(verifier []byte, privateKey, secretKey string) bool
}

// SessionHandler maps public keys to session records and supplies a session's
// key pair.
//
// SessionFromPublicKey is the only entry point fed with untrusted input and
// must be safe to call with arbitrary attacker-controlled strings. Any error,
// or a nil session, is treated as "not found". Implementations shared between
// goroutines must be safe for concurrent reads.
type SessionHandler interface {
	SessionFromPublicKey(ctx context.Context, publicKey string) (Session, error)
	PrivateKey(session Session) (string, error)
	PublicKey(session Session) (string, error)
}

// DerivedContexter is implemented by strategies that expose auxiliary
// attributes on every [Context] the engine builds.
type DerivedContexter interface {
	DerivedContext() map[string]any
}

// WireEncoding armors the outermost layer of a blob for transports that cannot
// carry arbitrary bytes.
type WireEncoding interface {
	Wrap(blob []byte) []byte
	Unwrap(blob []byte) ([]byte, error)
}

// Environment bundles the blob-shaping strategies an [Engine] is built with.
type Environment struct {
	Wire     WireEncoding
	Cryptor  Cryptor
	Verifier Verifier
	Coder    Coder
}
