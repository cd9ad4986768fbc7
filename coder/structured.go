package coder

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
)

var mapStringAny = reflect.TypeOf(map[string]any(nil))

// JSONCoder encodes any JSON-marshalable value. Objects decode to
// map[string]any.
type JSONCoder struct{}

// Encode implements instantauth.Coder.
func (JSONCoder) Encode(data any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, unsupported("json", data)
	}
	return nonNil(b), nil
}

// Decode implements instantauth.Coder.
func (JSONCoder) Decode(payload []byte) (any, error) {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, malformed("json", err)
	}
	return v, nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (JSONCoder) DerivedContext() map[string]any { return derived("json") }

// CBORCoder encodes values as CBOR in core deterministic form. Maps decode to
// map[string]any.
type CBORCoder struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCoder builds a CBORCoder.
func NewCBORCoder() (*CBORCoder, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{
		DefaultMapType:  mapStringAny,
		MaxNestedLevels: 32,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBORCoder{enc: enc, dec: dec}, nil
}

// Encode implements instantauth.Coder.
func (c *CBORCoder) Encode(data any) ([]byte, error) {
	b, err := c.enc.Marshal(data)
	if err != nil {
		return nil, unsupported("cbor", data)
	}
	return nonNil(b), nil
}

// Decode implements instantauth.Coder.
func (c *CBORCoder) Decode(payload []byte) (any, error) {
	var v any
	if err := c.dec.Unmarshal(payload, &v); err != nil {
		return nil, malformed("cbor", err)
	}
	return v, nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (c *CBORCoder) DerivedContext() map[string]any { return derived("cbor") }

// MsgpackCoder encodes values as MessagePack. Maps decode to map[string]any
// and raw strings decode to string.
type MsgpackCoder struct {
	handle *codec.MsgpackHandle
}

// NewMsgpackCoder builds a MsgpackCoder.
func NewMsgpackCoder() *MsgpackCoder {
	h := new(codec.MsgpackHandle)
	h.MapType = mapStringAny
	h.RawToString = true
	h.WriteExt = true
	return &MsgpackCoder{handle: h}
}

// Encode implements instantauth.Coder.
func (c *MsgpackCoder) Encode(data any) (out []byte, err error) {
	enc := codec.NewEncoderBytes(&out, c.handle)
	if err = enc.Encode(data); err != nil {
		return nil, unsupported("msgpack", data)
	}
	return nonNil(out), nil
}

// Decode implements instantauth.Coder.
func (c *MsgpackCoder) Decode(payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, malformed("msgpack", errEmptyPayload)
	}
	var v any
	dec := codec.NewDecoderBytes(payload, c.handle)
	if err := dec.Decode(&v); err != nil {
		return nil, malformed("msgpack", err)
	}
	return v, nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (c *MsgpackCoder) DerivedContext() map[string]any { return derived("msgpack") }
