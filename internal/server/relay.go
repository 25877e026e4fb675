package server

import (
	"io"
	"log/slog"
	"net/http"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// Pre-allocated header value slices for streamed responses.
// Direct map assignment avoids the []string{v} alloc that Header.Set creates.
var (
	streamCT       = []string{"text/event-stream"}
	streamCache    = []string{"no-cache"}
	streamConn     = []string{"keep-alive"}
	streamAccelBuf = []string{"no"}
)

// relayStream forwards the upstream event stream to the caller as bytes
// arrive: no buffering of the full response, no parsing or re-encoding
// of the event framing. Once relaying starts, a mid-stream upstream
// failure simply ends the response; the wire format stays untouched.
func (s *server) relayStream(w http.ResponseWriter, r *http.Request, handle *gateway.StreamHandle) {
	h := w.Header()
	if handle.ContentType != "" {
		h.Set("Content-Type", handle.ContentType)
	} else {
		h["Content-Type"] = streamCT
	}
	h["Cache-Control"] = streamCache
	h["Connection"] = streamConn
	h["X-Accel-Buffering"] = streamAccelBuf
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ActiveStreams.Inc()
		defer s.deps.Metrics.ActiveStreams.Dec()
	}

	// The upstream request carries the caller's context, so a caller
	// disconnect aborts the body read below and releases the upstream
	// connection promptly.
	buf := make([]byte, 32*1024)
	for {
		n, readErr := handle.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				slog.LogAttrs(r.Context(), slog.LevelDebug, "caller went away mid-stream",
					slog.String("request_id", gateway.RequestIDFromContext(r.Context())),
				)
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF && r.Context().Err() == nil {
				slog.LogAttrs(r.Context(), slog.LevelWarn, "upstream stream ended abnormally",
					slog.String("error", readErr.Error()),
					slog.String("request_id", gateway.RequestIDFromContext(r.Context())),
				)
			}
			return
		}
	}
}
