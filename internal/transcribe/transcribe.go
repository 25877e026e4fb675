// Package transcribe implements the speech-to-text collaborator client.
// Transcription is best-effort: every failure mode here degrades to a
// textual fallback upstream, never a request abort.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/provider"
)

const providerName = "transcription"

// ErrUnconfigured is returned when no transcription endpoint is set.
var ErrUnconfigured = errors.New("transcription not configured")

var _ gateway.Transcriber = (*Client)(nil)

// Client calls a whisper-style /audio/transcriptions endpoint.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New creates a Client. timeout bounds each transcription call
// independently of the surrounding request deadline, so a hung
// transcription never stalls the whole turn.
func New(baseURL, model string, timeout time.Duration, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		http:    client,
	}
}

// Transcribe submits raw audio bytes and returns the transcribed text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.baseURL == "" {
		return "", ErrUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return "", fmt.Errorf("transcribe: create form: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("transcribe: write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("transcribe: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcribe: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", provider.ParseAPIError(providerName, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("transcribe: read response: %w", err)
	}

	text := gjson.GetBytes(body, "text").String()
	if text == "" {
		return "", fmt.Errorf("transcribe: empty transcript in response")
	}
	return text, nil
}
