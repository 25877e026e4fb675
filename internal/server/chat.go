package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// maxRequestBody bounds the chat request body. Generous enough for a
// base64 attachment of several megabytes plus the history window.
const maxRequestBody = 16 << 20

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var prompt gateway.ChatPrompt
	if err := json.NewDecoder(r.Body).Decode(&prompt); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				errorResponse{Error: "request body exceeds the maximum size"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	prepared, err := s.deps.Chat.Prepare(r.Context(), &prompt)
	if err != nil {
		writeJSON(w, errorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	// The request will reach the model: record the audit trail now.
	// Fire-and-forget -- nothing past this point depends on it.
	if s.deps.Audit != nil {
		s.deps.Audit.Record(prepared.Audit)
	}

	handle, err := s.deps.Streamer.OpenStream(r.Context(), prepared.Request)
	if err != nil {
		status := errorStatus(err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.UpstreamErrors.WithLabelValues(errorKind(err)).Inc()
		}
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.retryHint().Seconds())))
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	defer handle.Close()

	s.relayStream(w, r, handle)
}

// retryHint is the suggested wait advertised on rate-limited responses.
func (s *server) retryHint() time.Duration {
	if s.deps.Limiter != nil {
		return s.deps.Limiter.Window()
	}
	return time.Minute
}

// errorResponse is the JSON body for every failure.
type errorResponse struct {
	Error string `json:"error"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gateway.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// errorKind labels upstream failures for metrics with bounded cardinality.
func errorKind(err error) string {
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, gateway.ErrQuotaExhausted):
		return "quota_exhausted"
	default:
		return "unavailable"
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call. Saves 1 alloc/req.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
