// Package provider contains shared utilities for upstream API clients.
package provider

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// APIError represents an error response from an upstream service.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including provider, status, and
// the upstream message when one can be extracted.
func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Message extracts the human-readable message from an OpenAI-shaped
// error body ({"error":{"message":...}}), or "" when absent.
func (e *APIError) Message() string {
	return gjson.Get(e.Body, "error.message").String()
}

// HTTPStatus returns the upstream HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}
