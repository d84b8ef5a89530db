package middleware

import (
	stdhttp "net/http"
	"runtime/debug"
	"strings"

	"teambot/internal/platform/logger"
	pnet "teambot/internal/platform/net"
)

// Recover converts panics into a plain 500 and logs the stack with request id.
// Webhook sources only care about the status code, so no JSON body is built.
func Recover(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			if v := recover(); v != nil {
				reqID := pnet.RequestID(r.Context())

				raw := debug.Stack()
				stack := strings.Join(strings.Split(string(raw), "\n"), "\n\t")

				logger.Get().Error().
					Str("request_id", reqID).
					Interface("panic", v).
					Msgf("panic recovered\n%s", stack)

				if reqID != "" {
					w.Header().Set("X-Request-ID", reqID)
				}
				w.WriteHeader(stdhttp.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
