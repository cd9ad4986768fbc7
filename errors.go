package instantauth

import "errors"

var (
	// ErrAuthentication is returned by every read-flow rejection. The cause
	// (missing public key, unknown session, failed confirmation, undecryptable or
	// undecodable payload) is deliberately not distinguishable by callers.
	ErrAuthentication = errors.New("authentication failed")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or
	// partially constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuildFailed wraps strategy errors raised while issuing a blob.
	ErrBuildFailed = errors.New("blob build failed")
	// ErrSessionKeyUnavailable is returned by BuildData when the session handler
	// cannot supply the key pair for the given session.
	ErrSessionKeyUnavailable = errors.New("session key unavailable")
)
