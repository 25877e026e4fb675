package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// unknownIdentity is the rate-limit key when no address can be derived.
const unknownIdentity = "unknown"

// clientIdentity derives the rate-limit key from the originating
// network address: first forwarded-for value, else the direct
// connection address, else a sentinel.
func clientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknownIdentity
}

// admission enforces the fixed-window ceiling per client identity
// before any expensive work happens. Denials carry a Retry-After hint
// equal to the window size.
func (s *server) admission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		identity := clientIdentity(r)
		res := s.deps.Limiter.Allow(identity)
		if !res.Allowed {
			if s.deps.Metrics != nil {
				s.deps.Metrics.RateLimitRejects.Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			writeJSON(w, http.StatusTooManyRequests,
				errorResponse{Error: "too many requests, retry later"})
			return
		}

		ctx := gateway.ContextWithClientID(r.Context(), identity)
		if ctx == r.Context() {
			// Identity was stored via pointer mutation; skip Request.WithContext.
			next.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}
