package middleware

import (
	"net/http"

	"github.com/MrEthical07/instantauth"
)

// RequireContext admits only requests whose body is a blob authenticated to
// an existing session.
func RequireContext(engine *instantauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, FlowContext, 0)
}
