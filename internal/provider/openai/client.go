// Package openai implements the gateway.ChatStreamer adapter for an
// OpenAI-compatible completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/provider"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
)

var _ gateway.ChatStreamer = (*Client)(nil)

// Client opens streaming completion requests against one upstream.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. If baseURL is empty, it defaults to the public
// OpenAI endpoint. The provided client should have auth configured via
// its transport chain.
func New(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// OpenStream sends the completion request with streaming forced on and
// returns the raw response body for transparent relay. The event-stream
// framing is never parsed here. Upstream status maps onto the domain
// taxonomy: 429 rate limited, 402 quota exhausted, anything else
// non-2xx unavailable. A single attempt; no retries.
func (c *Client) OpenStream(ctx context.Context, req *gateway.UpstreamRequest) (*gateway.StreamHandle, error) {
	outReq := *req
	outReq.Stream = true

	body, err := json.Marshal(&outReq)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: open stream: %v", gateway.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := provider.ParseAPIError(providerName, resp)
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %v", gateway.ErrRateLimited, apiErr)
		case http.StatusPaymentRequired:
			return nil, fmt.Errorf("%w: %v", gateway.ErrQuotaExhausted, apiErr)
		default:
			return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamUnavailable, apiErr)
		}
	}

	return &gateway.StreamHandle{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
