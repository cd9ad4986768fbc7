// Package wire provides the outermost armor applied to blobs before they hit
// the transport.
package wire

import (
	"encoding/base64"
	"fmt"
)

// Encoding mirrors instantauth.WireEncoding.
type Encoding interface {
	Wrap(blob []byte) []byte
	Unwrap(blob []byte) ([]byte, error)
}

// Plain leaves blobs untouched.
type Plain struct{}

// Wrap implements instantauth.WireEncoding.
func (Plain) Wrap(blob []byte) []byte { return blob }

// Unwrap implements instantauth.WireEncoding.
func (Plain) Unwrap(blob []byte) ([]byte, error) { return blob, nil }

// Base64 armors blobs with padded standard base64.
type Base64 struct{}

// Wrap implements instantauth.WireEncoding.
func (Base64) Wrap(blob []byte) []byte {
	return encode(base64.StdEncoding, blob)
}

// Unwrap implements instantauth.WireEncoding.
func (Base64) Unwrap(blob []byte) ([]byte, error) {
	return decode(base64.StdEncoding, blob)
}

// Base64URL armors blobs with unpadded URL-safe base64.
type Base64URL struct{}

// Wrap implements instantauth.WireEncoding.
func (Base64URL) Wrap(blob []byte) []byte {
	return encode(base64.RawURLEncoding, blob)
}

// Unwrap implements instantauth.WireEncoding.
func (Base64URL) Unwrap(blob []byte) ([]byte, error) {
	return decode(base64.RawURLEncoding, blob)
}

func encode(enc *base64.Encoding, blob []byte) []byte {
	out := make([]byte, enc.EncodedLen(len(blob)))
	enc.Encode(out, blob)
	return out
}

func decode(enc *base64.Encoding, blob []byte) ([]byte, error) {
	out := make([]byte, enc.DecodedLen(len(blob)))
	n, err := enc.Decode(out, blob)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return out[:n], nil
}

// ByName returns the encoding registered under name: "plain", "base64" or
// "base64url".
func ByName(name string) (Encoding, error) {
	switch name {
	case "", "plain":
		return Plain{}, nil
	case "base64":
		return Base64{}, nil
	case "base64url":
		return Base64URL{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown encoding %q", name)
	}
}
