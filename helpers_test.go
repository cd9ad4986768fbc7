package instantauth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/cryptor"
	"github.com/MrEthical07/instantauth/verifier"
)

const testSecret = "SECRET"

var errNoSuchSession = errors.New("no such session")

// testSessionHandler resolves every public key to {"id": publicKey} and hands
// out one fixed key pair.
type testSessionHandler struct {
	lookups    atomic.Int64
	privateKey string
	publicKey  string
	lookup     func(publicKey string) (Session, error)
}

func newTestSessionHandler() *testSessionHandler {
	return &testSessionHandler{
		privateKey: "private_key",
		publicKey:  "public_key",
	}
}

func (h *testSessionHandler) SessionFromPublicKey(_ context.Context, publicKey string) (Session, error) {
	h.lookups.Add(1)
	if h.lookup != nil {
		return h.lookup(publicKey)
	}
	return map[string]any{"id": publicKey}, nil
}

func (h *testSessionHandler) PrivateKey(Session) (string, error) {
	return h.privateKey, nil
}

func (h *testSessionHandler) PublicKey(Session) (string, error) {
	return h.publicKey, nil
}

// spyCryptor counts data-level decryptions on top of the plain cryptor.
type spyCryptor struct {
	cryptor.PlainCryptor
	dataDecrypts atomic.Int64
}

func (c *spyCryptor) DecryptData(payload []byte, secretKey, key string) ([]byte, error) {
	c.dataDecrypts.Add(1)
	return c.PlainCryptor.DecryptData(payload, secretKey, key)
}

type attrSource map[string]any

func (a attrSource) DerivedContext() map[string]any { return a }

type attrCryptor struct {
	cryptor.PlainCryptor
	attrs attrSource
}

func (c attrCryptor) DerivedContext() map[string]any { return c.attrs }

type attrVerifier struct {
	verifier.BypassVerifier
	attrs attrSource
}

func (v attrVerifier) DerivedContext() map[string]any { return v.attrs }

type attrCoder struct {
	coder.SimpleURLQueryCoder
	attrs attrSource
}

func (c attrCoder) DerivedContext() map[string]any { return c.attrs }

type nilCoder struct{}

func (nilCoder) Encode(any) ([]byte, error) { return nil, nil }
func (nilCoder) Decode([]byte) (any, error) { return nil, nil }

type nilDataCryptor struct {
	cryptor.PlainCryptor
}

func (nilDataCryptor) EncryptData([]byte, string, string) ([]byte, error) { return nil, nil }

func buildTestEngine(t *testing.T, b *Builder) *Engine {
	t.Helper()
	if b.config.SecretKey == "" {
		b.WithSecretKey(testSecret)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
