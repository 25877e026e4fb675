package server

import "net/http"

// Pre-allocated header value slices. Direct map assignment avoids the
// []string{v} alloc that Header.Set creates on every request.
var (
	corsOrigin  = []string{"*"}
	corsMethods = []string{"POST, GET, OPTIONS"}
	corsHeaders = []string{"Content-Type, X-Request-Id"}
	corsMaxAge  = []string{"86400"}
)

// corsMiddleware applies permissive cross-origin headers so the chat
// widget can call the gateway from any origin, and short-circuits
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h["Access-Control-Allow-Origin"] = corsOrigin
		h["Access-Control-Allow-Methods"] = corsMethods
		h["Access-Control-Allow-Headers"] = corsHeaders

		if r.Method == http.MethodOptions {
			h["Access-Control-Max-Age"] = corsMaxAge
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
