// Package chat turns a raw visitor prompt into the exact upstream
// request: validation, attachment normalization, conversation
// windowing, and model selection.
package chat

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/telemetry"
)

// auditExcerptCap bounds the user-message excerpt stored in the audit
// record.
const auditExcerptCap = 500

// Config holds the conversation-shaping settings for the Service.
type Config struct {
	Model           string // default text model
	VisionModel     string // selected when the request carries an image part
	HistoryWindow   int
	MaxMessageChars int
	DefaultLanguage string
}

// Service prepares upstream requests. It is stateless across requests
// and safe for concurrent use.
type Service struct {
	transcriber gateway.Transcriber // nil = audio always degrades
	metrics     *telemetry.Metrics  // nil = no metrics
	tracer      trace.Tracer

	model         string
	visionModel   string
	historyWindow int
	maxChars      int
	defaultLang   string
}

// NewService returns a Service wired to the given transcriber and metrics.
func NewService(cfg Config, transcriber gateway.Transcriber, metrics *telemetry.Metrics) *Service {
	return &Service{
		transcriber:   transcriber,
		metrics:       metrics,
		tracer:        telemetry.Tracer("chat"),
		model:         cfg.Model,
		visionModel:   cfg.VisionModel,
		historyWindow: cfg.HistoryWindow,
		maxChars:      cfg.MaxMessageChars,
		defaultLang:   cfg.DefaultLanguage,
	}
}

// Prepared is the outcome of a successfully prepared visitor turn.
type Prepared struct {
	Request    *gateway.UpstreamRequest
	SessionKey string
	Language   string
	Audit      gateway.AuditRecord
}

// Prepare validates the prompt, normalizes any attachment on the newest
// turn, trims the history window, prepends the system instruction, and
// selects the model. Validation failures return a wrapped ErrBadRequest
// before any external call happens; transcription failures degrade
// inside normalization and never surface here.
func (s *Service) Prepare(ctx context.Context, prompt *gateway.ChatPrompt) (*Prepared, error) {
	if err := s.validate(prompt.Messages); err != nil {
		return nil, err
	}

	session := gateway.SanitizeVisitorID(prompt.VisitorID)
	language := prompt.Language
	if language == "" {
		language = s.defaultLang
	}

	// Audit captures the pre-normalization user text, never the
	// attachment-expanded content.
	excerpt := lastUserExcerpt(prompt.Messages)

	newest := prompt.Messages[len(prompt.Messages)-1]
	history := prompt.Messages[:len(prompt.Messages)-1]

	if prompt.Attachment != nil {
		spanCtx, span := s.tracer.Start(ctx, "chat.normalize_attachment",
			trace.WithAttributes(attribute.String("attachment.kind", prompt.Attachment.Kind)))
		content, err := s.normalize(spanCtx, prompt.Attachment, newest.Content.PlainText())
		span.End()
		if err != nil {
			return nil, err
		}
		newest.Content = content
	}

	window := buildWindow(buildSystemInstruction(language, session), history, newest, s.historyWindow)

	model := s.model
	for _, turn := range window {
		if turn.Content.HasImagePart() {
			model = s.visionModel
			break
		}
	}

	return &Prepared{
		Request: &gateway.UpstreamRequest{
			Model:    model,
			Messages: window,
			Stream:   true,
		},
		SessionKey: session,
		Language:   language,
		Audit: gateway.AuditRecord{
			SessionKey: session,
			Excerpt:    excerpt,
			Status:     gateway.AuditStatusStreaming,
			Language:   language,
			CreatedAt:  time.Now().UTC(),
		},
	}, nil
}

// lastUserExcerpt returns the capped text of the most recent user turn.
func lastUserExcerpt(turns []gateway.ChatTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != gateway.RoleUser {
			continue
		}
		return cutAtRuneBoundary(turns[i].Content.PlainText(), auditExcerptCap)
	}
	return ""
}

// cutAtRuneBoundary shortens s to at most max bytes, backing up so a
// multi-byte rune is never split.
func cutAtRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
