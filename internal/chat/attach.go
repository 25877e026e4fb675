package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// documentPreviewBytes caps how much decoded document content reaches
// the model. The raw payload is never forwarded.
const documentPreviewBytes = 4000

const defaultImageMediaType = "image/jpeg"

// normalize converts the attachment into provider-ready content for the
// newest turn. fallbackText is the caller's original text on that turn,
// used to carry their intent into the generated instruction.
func (s *Service) normalize(ctx context.Context, att *gateway.Attachment, fallbackText string) (gateway.MessageContent, error) {
	switch att.Kind {
	case gateway.AttachmentImage:
		return normalizeImage(att, fallbackText)
	case gateway.AttachmentDocument:
		return normalizeDocument(att, fallbackText)
	case gateway.AttachmentAudio:
		return s.normalizeAudio(ctx, att, fallbackText), nil
	default:
		return gateway.MessageContent{}, fmt.Errorf("%w: unknown attachment type %q", gateway.ErrBadRequest, att.Kind)
	}
}

// normalizeImage re-wraps the payload as an image part with its declared
// media type, paired with a text instruction. Decoding validates the
// payload; the part carries a clean data URI regardless of how the
// caller prefixed it.
func normalizeImage(att *gateway.Attachment, fallbackText string) (gateway.MessageContent, error) {
	payload, uriMediaType, err := decodePayload(att.Content)
	if err != nil {
		return gateway.MessageContent{}, err
	}

	mediaType := att.MediaType
	if mediaType == "" {
		mediaType = uriMediaType
	}
	if mediaType == "" {
		mediaType = defaultImageMediaType
	}

	instruction := "Describe this image for the visitor."
	if fallbackText != "" {
		instruction = "Analyze the attached image and answer the visitor's request: " + fallbackText
	}

	dataURI := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(payload)
	return gateway.PartsContent(
		gateway.ContentPart{Type: gateway.PartText, Text: instruction},
		gateway.ContentPart{Type: gateway.PartImage, ImageURL: &gateway.ImageURL{URL: dataURI}},
	), nil
}

// normalizeDocument treats the payload as text-bearing content and
// forwards a bounded preview with an instruction.
func normalizeDocument(att *gateway.Attachment, fallbackText string) (gateway.MessageContent, error) {
	payload, _, err := decodePayload(att.Content)
	if err != nil {
		return gateway.MessageContent{}, err
	}

	preview := string(payload)
	if len(preview) > documentPreviewBytes {
		preview = cutAtRuneBoundary(preview, documentPreviewBytes) + "\n[... document truncated ...]"
	}

	instruction := "Summarize this document for the visitor."
	if fallbackText != "" {
		instruction = fallbackText
	}

	name := att.Name
	if name == "" {
		name = "document"
	}

	return gateway.TextContent(fmt.Sprintf(
		"The visitor attached a document named %q.\n%s\n\nDocument content:\n%s",
		name, instruction, preview,
	)), nil
}

// normalizeAudio transcribes the payload and folds the transcript into a
// text instruction. Every failure -- unconfigured, undecodable payload,
// service error, timeout -- degrades to an instruction telling the model
// the transcription failed, so it can ask the visitor to repeat instead
// of hallucinating a reply to unheard audio.
func (s *Service) normalizeAudio(ctx context.Context, att *gateway.Attachment, fallbackText string) gateway.MessageContent {
	payload, _, err := decodePayload(att.Content)
	if err == nil && s.transcriber != nil {
		var transcript string
		transcript, err = s.transcriber.Transcribe(ctx, payload)
		if err == nil {
			text := fmt.Sprintf("The visitor said in a voice message: %q. Respond naturally to what they said.", transcript)
			if fallbackText != "" {
				text += " They also wrote: " + fallbackText
			}
			return gateway.TextContent(text)
		}
	}

	if s.metrics != nil {
		s.metrics.TranscriptionFailures.Inc()
	}
	slog.LogAttrs(ctx, slog.LevelWarn, "transcription degraded",
		slog.String("request_id", gateway.RequestIDFromContext(ctx)),
		slog.Any("error", err),
	)
	return gateway.TextContent(
		"The visitor sent a voice message but it could not be transcribed. " +
			"Apologize briefly and ask them to repeat their question in writing or try the voice message again.")
}

// decodePayload base64-decodes an attachment payload, stripping any
// data-URI prefix. The media type embedded in the prefix, if any, is
// returned alongside the bytes.
func decodePayload(content string) ([]byte, string, error) {
	var mediaType string
	if strings.HasPrefix(content, "data:") {
		rest, ok := strings.CutPrefix(content, "data:")
		if ok {
			meta, data, found := strings.Cut(rest, ",")
			if !found {
				return nil, "", fmt.Errorf("%w: malformed data URI in attachment", gateway.ErrBadRequest)
			}
			mediaType = strings.TrimSuffix(meta, ";base64")
			content = data
		}
	}
	payload, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, "", fmt.Errorf("%w: attachment payload is not valid base64", gateway.ErrBadRequest)
	}
	return payload, mediaType, nil
}
