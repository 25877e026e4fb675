// Package gateway defines domain types and interfaces for the vitrine
// assistant gateway. This package has no project imports -- it is the
// dependency root.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// --- Roles and content ---

// Turn roles understood by the gateway and the upstream provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part types.
const (
	PartText  = "text"
	PartImage = "image_url"
)

// ChatTurn is a single message in a conversation.
type ChatTurn struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or an ordered list of typed
// content parts. The two shapes are mutually exclusive.
type MessageContent struct {
	Text  string
	Parts []ContentPart

	parts   bool // true when the parts shape was supplied
	invalid bool // true when the payload matched neither shape
}

// TextContent returns a plain-string MessageContent.
func TextContent(s string) MessageContent {
	return MessageContent{Text: s}
}

// PartsContent returns a structured MessageContent.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts, parts: true}
}

// IsParts reports whether the structured shape was supplied.
func (mc MessageContent) IsParts() bool { return mc.parts }

// IsValid reports whether the content matched one of the two shapes.
func (mc MessageContent) IsValid() bool { return !mc.invalid }

// HasImagePart reports whether any part references an image.
func (mc MessageContent) HasImagePart() bool {
	for _, p := range mc.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// PlainText flattens the content to text: the string itself, or the
// concatenated text parts of the structured shape.
func (mc MessageContent) PlainText() string {
	if !mc.parts {
		return mc.Text
	}
	var b strings.Builder
	for _, p := range mc.Parts {
		if p.Type != PartText {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// UnmarshalJSON accepts a plain string or an array of content parts.
// A payload matching neither shape is recorded as invalid rather than
// failing the whole decode, so validation can name the violation.
func (mc *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*mc = MessageContent{Text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		*mc = MessageContent{Parts: parts, parts: true}
		return nil
	}
	*mc = MessageContent{invalid: true}
	return nil
}

// MarshalJSON emits the shape that was supplied.
func (mc MessageContent) MarshalJSON() ([]byte, error) {
	if mc.parts {
		return json.Marshal(mc.Parts)
	}
	return json.Marshal(mc.Text)
}

// ContentPart is one typed unit of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image for vision-capable models. The URL is a
// data URI for attachment-derived images.
type ImageURL struct {
	URL string `json:"url"`
}

// --- Attachments ---

// Attachment kinds accepted on the newest turn.
const (
	AttachmentImage    = "image"
	AttachmentDocument = "document"
	AttachmentAudio    = "audio"
)

// Attachment is an ephemeral media payload carried by the newest turn.
// It exists only for the duration of one request and is never stored
// as binary data.
type Attachment struct {
	Kind      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Content   string `json:"content"` // base64, optionally data-URI prefixed
	MediaType string `json:"mediaType,omitempty"`
}

// --- Request / response shapes ---

// ChatPrompt is the inbound request body for POST /api/chat.
type ChatPrompt struct {
	Messages   []ChatTurn  `json:"messages"`
	VisitorID  string      `json:"visitorId,omitempty"`
	Language   string      `json:"language,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// UpstreamRequest is the completion request sent to the model provider.
// Built fresh per request and immutable once sent.
type UpstreamRequest struct {
	Model    string     `json:"model"`
	Messages []ChatTurn `json:"messages"`
	Stream   bool       `json:"stream"`
}

// StreamHandle is an open upstream event stream. The body is opaque:
// the gateway relays it without parsing or re-encoding the framing.
type StreamHandle struct {
	Body        io.ReadCloser
	ContentType string
}

// Close releases the upstream connection.
func (h *StreamHandle) Close() error {
	if h == nil || h.Body == nil {
		return nil
	}
	return h.Body.Close()
}

// ChatStreamer opens a streaming completion request against the
// upstream model provider. A non-2xx open is returned as an error; a
// nil error means the handle is ready to relay.
type ChatStreamer interface {
	OpenStream(ctx context.Context, req *UpstreamRequest) (*StreamHandle, error)
}

// Transcriber converts raw audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// --- Audit ---

// AuditStatusStreaming is the fixed response status recorded for every
// accepted request. The full reply is never captured.
const AuditStatusStreaming = "streaming"

// AuditRecord is the append-only trace of one accepted request.
type AuditRecord struct {
	ID         string    `json:"id"`
	SessionKey string    `json:"session_key"`
	Excerpt    string    `json:"excerpt"`
	Status     string    `json:"status"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Visitor identity ---

// DefaultVisitorID is used when the caller supplies no visitor ID.
const DefaultVisitorID = "anonymous"

const maxVisitorIDLen = 100

// SanitizeVisitorID strips everything outside [A-Za-z0-9_-] and caps
// the result at 100 characters. Empty results fall back to "anonymous".
func SanitizeVisitorID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
		if b.Len() >= maxVisitorIDLen {
			break
		}
	}
	if b.Len() == 0 {
		return DefaultVisitorID
	}
	return b.String()
}

// --- Context keys ---

type contextKey int

const ctxKeyMeta contextKey = 0

// requestMeta bundles per-request values into a single context
// allocation. ClientID is set later by the admission middleware via
// mutation of the same pointer, avoiding a second context.WithValue +
// Request.WithContext.
type requestMeta struct {
	RequestID string
	ClientID  string
}

func metaFromContext(ctx context.Context) *requestMeta {
	m, _ := ctx.Value(ctxKeyMeta).(*requestMeta)
	return m
}

// RequestIDFromContext extracts the request ID from ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.RequestID
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{RequestID: id})
}

// ClientIDFromContext extracts the rate-limit client identity, or "".
func ClientIDFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.ClientID
	}
	return ""
}

// ContextWithClientID stores the client identity in the existing
// requestMeta if present, avoiding a new context.WithValue allocation.
// Falls back to creating new metadata if none exists (e.g., in tests).
func ContextWithClientID(ctx context.Context, id string) context.Context {
	if m := metaFromContext(ctx); m != nil {
		m.ClientID = id
		return ctx
	}
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{ClientID: id})
}
