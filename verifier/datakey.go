package verifier

import (
	"fmt"
	"net/url"
)

// PayloadCoder is the subset of instantauth.Coder DataKeyVerifier needs to
// read and rewrite the payload.
type PayloadCoder interface {
	Encode(data any) ([]byte, error)
	Decode(payload []byte) (any, error)
}

// DataKeyVerifier reads the public key from the field Field of the decoded
// payload. The segment is the payload itself and Verify always confirms, so
// the key is an identifier, not a proof. The data layer must be unencrypted
// (cryptor.PlainCryptor) because the key is read before any session is known.
type DataKeyVerifier struct {
	Coder PayloadCoder
	Field string
}

// NewDataKeyVerifier returns a DataKeyVerifier reading field through c.
func NewDataKeyVerifier(c PayloadCoder, field string) *DataKeyVerifier {
	return &DataKeyVerifier{Coder: c, Field: field}
}

// DivideVerifierData returns the blob as both segment and data.
func (v *DataKeyVerifier) DivideVerifierData(blob []byte, _ string) ([]byte, []byte, error) {
	return blob, blob, nil
}

// MergeVerifierData writes the public key carried by segment into Field of
// the payload in rest.
func (v *DataKeyVerifier) MergeVerifierData(segment, rest []byte, _ string) ([]byte, error) {
	publicKey := string(segment)
	if publicKey == "" {
		return nil, ErrInvalidPublicKey
	}

	var decoded any = map[string]any{}
	if len(rest) > 0 {
		d, err := v.Coder.Decode(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSegment, err)
		}
		decoded = d
	}

	switch m := decoded.(type) {
	case map[string]any:
		m[v.Field] = publicKey
	case map[string]string:
		m[v.Field] = publicKey
	case url.Values:
		m.Set(v.Field, publicKey)
	case map[string][]string:
		m[v.Field] = []string{publicKey}
	default:
		return nil, fmt.Errorf("%w: payload %T has no fields", ErrMalformedSegment, decoded)
	}

	out, err := v.Coder.Encode(decoded)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PublicKeyFromVerifier decodes the segment and reads Field. Only string
// values count.
func (v *DataKeyVerifier) PublicKeyFromVerifier(segment []byte, _ string) (string, bool) {
	decoded, err := v.Coder.Decode(segment)
	if err != nil {
		return "", false
	}

	var key string
	switch m := decoded.(type) {
	case map[string]any:
		key, _ = m[v.Field].(string)
	case map[string]string:
		key = m[v.Field]
	case url.Values:
		key = m.Get(v.Field)
	case map[string][]string:
		if vs := m[v.Field]; len(vs) > 0 {
			key = vs[0]
		}
	}
	return key, key != ""
}

// EncodeVerifier returns the public key; MergeVerifierData embeds it.
func (v *DataKeyVerifier) EncodeVerifier(_, publicKey, _ string) ([]byte, error) {
	if publicKey == "" {
		return nil, ErrInvalidPublicKey
	}
	return []byte(publicKey), nil
}

// Verify always confirms.
func (v *DataKeyVerifier) Verify(_ []byte, _, _ string) bool {
	return true
}

// DerivedContext implements instantauth.DerivedContexter.
func (v *DataKeyVerifier) DerivedContext() map[string]any {
	return map[string]any{"verifier": "datakey"}
}
