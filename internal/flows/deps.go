package flows

import "context"

// Coder mirrors instantauth.Coder.
type Coder interface {
	Encode(data any) ([]byte, error)
	Decode(payload []byte) (any, error)
}

// Cryptor mirrors instantauth.Cryptor.
type Cryptor interface {
	EncryptGlobal(blob []byte, secretKey string) ([]byte, error)
	DecryptGlobal(blob []byte, secretKey string) ([]byte, error)
	EncryptData(payload []byte, secretKey, key string) ([]byte, error)
	DecryptData(payload []byte, secretKey, key string) ([]byte, error)
}

// Verifier mirrors instantauth.Verifier.
type Verifier interface {
	DivideVerifierData(blob []byte, secretKey string) (verifier, rest []byte, err error)
	MergeVerifierData(verifier, rest []byte, secretKey string) ([]byte, error)
	PublicKeyFromVerifier(verifier []byte, secretKey string) (string, bool)
	EncodeVerifier(privateKey, publicKey, secretKey string) ([]byte, error)
	Verify(verifier []byte, privateKey, secretKey string) bool
}

// SessionHandler mirrors instantauth.SessionHandler.
type SessionHandler interface {
	SessionFromPublicKey(ctx context.Context, publicKey string) (any, error)
	PrivateKey(session any) (string, error)
	PublicKey(session any) (string, error)
}

// WireEncoding mirrors instantauth.WireEncoding.
type WireEncoding interface {
	Wrap(blob []byte) []byte
	Unwrap(blob []byte) ([]byte, error)
}

// Deps captures everything a flow needs. The root engine builds it once and
// shares it read-only between calls.
type Deps struct {
	Wire      WireEncoding
	Cryptor   Cryptor
	Verifier  Verifier
	Coder     Coder
	Sessions  SessionHandler
	SecretKey string
}
