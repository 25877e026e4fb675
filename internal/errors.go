package gateway

import "errors"

// Sentinel errors for the gateway domain.
var (
	// Client input, resolved before any external call.
	ErrBadRequest = errors.New("bad request")

	// Local admission control or provider-reported rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// Provider reports exhausted credits or quota.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// Any other non-2xx stream open, or a failure opening the stream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
