package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/instantauth"
)

// DefaultMaxBodyBytes caps how much of a request body Guard reads.
const DefaultMaxBodyBytes int64 = 1 << 20

// Flow selects which engine read flow a guard runs.
type Flow int

const (
	// FlowContext runs the authenticated flow.
	FlowContext Flow = iota
	// FlowFirstContext runs the bootstrap flow.
	FlowFirstContext
)

type authContextKey struct{}

// ContextFromRequest returns the Context a guard attached to r.
func ContextFromRequest(r *http.Request) (*instantauth.Context, bool) {
	return ContextFrom(r.Context())
}

// ContextFrom returns the Context a guard attached to ctx.
func ContextFrom(ctx context.Context) (*instantauth.Context, bool) {
	c, ok := ctx.Value(authContextKey{}).(*instantauth.Context)
	return c, ok && c != nil
}

// Guard reads at most maxBody bytes of the request body (DefaultMaxBodyBytes
// when maxBody <= 0), runs flow and passes the request on with the decoded
// Context attached. The client address and X-Request-ID header are forwarded
// to the engine's audit events.
func Guard(engine *instantauth.Engine, flow Flow, maxBody int64) func(http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || r.Body == nil {
				unauthorized(w)
				return
			}

			blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
					return
				}
				unauthorized(w)
				return
			}

			ctx := instantauth.WithClientIP(r.Context(), r.RemoteAddr)
			if id := r.Header.Get("X-Request-ID"); id != "" {
				ctx = instantauth.WithRequestID(ctx, id)
			}

			var ac *instantauth.Context
			switch flow {
			case FlowFirstContext:
				ac, err = engine.GetFirstContext(ctx, blob)
			default:
				ac, err = engine.GetContext(ctx, blob)
			}
			if err != nil {
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, authContextKey{}, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBlob builds a blob for session and writes it as the response body.
func WriteBlob(w http.ResponseWriter, r *http.Request, engine *instantauth.Engine, session instantauth.Session, data any) error {
	if engine == nil {
		return instantauth.ErrEngineNotReady
	}
	blob, err := engine.BuildData(r.Context(), session, data)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(blob)
	return err
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
