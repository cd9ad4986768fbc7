package instantauth

import "context"

// Context is the result of a successful read flow: the decoded application
// data, the resolved session (authenticated flow only) and, in the bootstrap
// flow, the unauthenticated public key found in the blob.
//
// A Context is built once per call and never mutated afterwards.
type Context struct {
	session    Session
	data       any
	authKey    string
	hasAuthKey bool
	attrs      map[string]any
}

// Session returns the session resolved by the authenticated flow, or nil for a
// bootstrap context.
func (c *Context) Session() Session {
	if c == nil {
		return nil
	}
	return c.session
}

// Data returns the value produced by the coder's Decode.
func (c *Context) Data() any {
	if c == nil {
		return nil
	}
	return c.data
}

// AuthKey returns the public key extracted by [Engine.GetFirstContext].
//
// The key was never confirmed against any private key. Use it only to
// provision a new session out-of-band, never as proof of identity.
func (c *Context) AuthKey() (string, bool) {
	if c == nil {
		return "", false
	}
	return c.authKey, c.hasAuthKey
}

// Attr returns a derived attribute contributed by the cryptor, verifier or coder.
func (c *Context) Attr(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.attrs[name]
	return v, ok
}

// Attributes returns a copy of all derived attributes.
func (c *Context) Attributes() map[string]any {
	out := make(map[string]any)
	if c == nil {
		return out
	}
	for k, v := range c.attrs {
		out[k] = v
	}
	return out
}

// mergeDerived folds the strategies' derived attributes in the fixed order
// cryptor, verifier, coder. Later sources win on key collision.
func mergeDerived(sources ...any) map[string]any {
	attrs := make(map[string]any)
	for _, src := range sources {
		dc, ok := src.(DerivedContexter)
		if !ok {
			continue
		}
		for k, v := range dc.DerivedContext() {
			attrs[k] = v
		}
	}
	return attrs
}

type clientIPContextKey struct{}
type requestIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestID attaches a request correlation ID to ctx for audit events and
// debug logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
