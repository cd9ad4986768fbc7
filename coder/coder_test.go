package coder

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLQueryDecode(t *testing.T) {
	c := URLQueryCoder{}

	got, err := c.Decode([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, url.Values{}, got)

	got, err = c.Decode([]byte("field=value"))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"field": {"value"}}, got)

	got, err = c.Decode([]byte("field=value&field=value"))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"field": {"value", "value"}}, got)

	_, err = c.Decode([]byte("bad=%zz"))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestURLQueryEncode(t *testing.T) {
	c := URLQueryCoder{}

	out, err := c.Encode(map[string][]string{"b": {"2"}, "a": {"1", "x y"}})
	require.NoError(t, err)
	assert.Equal(t, "a=1&a=x+y&b=2", string(out))

	out, err = c.Encode(nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	_, err = c.Encode(42)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSimpleURLQueryKeepsFirstValue(t *testing.T) {
	c := SimpleURLQueryCoder{}

	got, err := c.Decode([]byte("field=value"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"field": "value"}, got)

	got, err = c.Decode([]byte("field=first&field=second"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"field": "first"}, got)

	out, err := c.Encode(map[string]string{"field": "value"})
	require.NoError(t, err)
	assert.Equal(t, "field=value", string(out))
}

func TestPlainCoder(t *testing.T) {
	c := PlainCoder{}

	out, err := c.Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)

	out, err = c.Encode(nil)
	require.NoError(t, err)
	assert.NotNil(t, out)

	got, err := c.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = c.Encode(3.5)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStructuredCodersRoundTrip(t *testing.T) {
	cb, err := NewCBORCoder()
	require.NoError(t, err)

	coders := map[string]interface {
		Encode(any) ([]byte, error)
		Decode([]byte) (any, error)
	}{
		"json":    JSONCoder{},
		"cbor":    cb,
		"msgpack": NewMsgpackCoder(),
	}

	in := map[string]any{"field": "value", "session": "1"}
	for name, c := range coders {
		t.Run(name, func(t *testing.T) {
			out, err := c.Encode(in)
			require.NoError(t, err)
			require.NotNil(t, out)

			got, err := c.Decode(out)
			require.NoError(t, err)
			assert.Equal(t, in, got)

			_, err = c.Decode([]byte{})
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestJSONDecodesObjects(t *testing.T) {
	got, err := JSONCoder{}.Decode([]byte(`{"field": "value", "session": "1"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"field": "value", "session": "1"}, got)

	_, err = JSONCoder{}.Encode(make(chan int))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDerivedContextNamesCoder(t *testing.T) {
	cb, err := NewCBORCoder()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"coder": "json"}, JSONCoder{}.DerivedContext())
	assert.Equal(t, map[string]any{"coder": "cbor"}, cb.DerivedContext())
	assert.Equal(t, map[string]any{"coder": "urlquery"}, URLQueryCoder{}.DerivedContext())
}
