package middleware

import (
	"net/http"

	"github.com/MrEthical07/instantauth"
)

// RequireFirstContext admits bootstrap blobs. The attached Context carries an
// unauthenticated AuthKey; handlers behind this guard must only use it to
// provision a session.
func RequireFirstContext(engine *instantauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, FlowFirstContext, 0)
}
