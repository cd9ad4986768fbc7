package coder

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned by Encode for values the coder cannot represent.
	ErrUnsupportedType = errors.New("coder: unsupported data type")
	// ErrMalformedPayload is returned by Decode for payloads the coder did not produce.
	ErrMalformedPayload = errors.New("coder: malformed payload")

	errEmptyPayload = errors.New("empty payload")
)

func unsupported(name string, v any) error {
	return fmt.Errorf("%w: %s cannot encode %T", ErrUnsupportedType, name, v)
}

func malformed(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
}

func derived(name string) map[string]any {
	return map[string]any{"coder": name}
}

// nonNil guarantees an empty payload is []byte{} rather than nil.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// PlainCoder passes strings and byte slices through unchanged. Decode returns
// a string.
type PlainCoder struct{}

// Encode implements instantauth.Coder.
func (PlainCoder) Encode(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(v), nil
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	default:
		return nil, unsupported("plain", data)
	}
}

// Decode implements instantauth.Coder.
func (PlainCoder) Decode(payload []byte) (any, error) {
	return string(payload), nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (PlainCoder) DerivedContext() map[string]any { return derived("plain") }
