package coder

import (
	"net/url"
)

// URLQueryCoder encodes key=value&key=value payloads. Decode returns
// url.Values so repeated keys keep every value; an empty payload decodes to an
// empty url.Values.
type URLQueryCoder struct{}

// Encode accepts url.Values, map[string][]string or map[string]string.
func (URLQueryCoder) Encode(data any) ([]byte, error) {
	values, ok := toValues(data)
	if !ok {
		return nil, unsupported("urlquery", data)
	}
	return nonNil([]byte(values.Encode())), nil
}

// Decode implements instantauth.Coder.
func (URLQueryCoder) Decode(payload []byte) (any, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, malformed("urlquery", err)
	}
	return values, nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (URLQueryCoder) DerivedContext() map[string]any { return derived("urlquery") }

// SimpleURLQueryCoder is URLQueryCoder for flat maps: Decode keeps the first
// value of every key and returns map[string]string.
type SimpleURLQueryCoder struct{}

// Encode implements instantauth.Coder.
func (SimpleURLQueryCoder) Encode(data any) ([]byte, error) {
	values, ok := toValues(data)
	if !ok {
		return nil, unsupported("simpleurlquery", data)
	}
	return nonNil([]byte(values.Encode())), nil
}

// Decode implements instantauth.Coder.
func (SimpleURLQueryCoder) Decode(payload []byte) (any, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, malformed("simpleurlquery", err)
	}
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (SimpleURLQueryCoder) DerivedContext() map[string]any { return derived("simpleurlquery") }

func toValues(data any) (url.Values, bool) {
	switch v := data.(type) {
	case nil:
		return url.Values{}, true
	case url.Values:
		return v, true
	case map[string][]string:
		return url.Values(v), true
	case map[string]string:
		values := make(url.Values, len(v))
		for k, s := range v {
			values.Set(k, s)
		}
		return values, true
	default:
		return nil, false
	}
}
