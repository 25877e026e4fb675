package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/testutil"
)

func TestNormalizeImageMediaTypePrecedence(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("img-bytes"))

	tests := []struct {
		name string
		att  gateway.Attachment
		want string
	}{
		{
			name: "declared field wins",
			att:  gateway.Attachment{Kind: gateway.AttachmentImage, Content: "data:image/gif;base64," + payload, MediaType: "image/png"},
			want: "data:image/png;base64,",
		},
		{
			name: "uri prefix when field absent",
			att:  gateway.Attachment{Kind: gateway.AttachmentImage, Content: "data:image/webp;base64," + payload},
			want: "data:image/webp;base64,",
		},
		{
			name: "jpeg fallback",
			att:  gateway.Attachment{Kind: gateway.AttachmentImage, Content: payload},
			want: "data:image/jpeg;base64,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := normalizeImage(&tt.att, "")
			if err != nil {
				t.Fatalf("normalizeImage: %v", err)
			}
			if len(content.Parts) != 2 {
				t.Fatalf("parts = %d, want 2", len(content.Parts))
			}
			if content.Parts[0].Type != gateway.PartText {
				t.Errorf("first part type = %q", content.Parts[0].Type)
			}
			img := content.Parts[1]
			if img.Type != gateway.PartImage || img.ImageURL == nil {
				t.Fatalf("second part is not an image: %+v", img)
			}
			if !strings.HasPrefix(img.ImageURL.URL, tt.want) {
				t.Errorf("data URI = %q, want prefix %q", img.ImageURL.URL, tt.want)
			}
			if !strings.HasSuffix(img.ImageURL.URL, payload) {
				t.Errorf("data URI does not carry the original payload")
			}
		})
	}
}

func TestNormalizeImageCarriesVisitorText(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	content, err := normalizeImage(&gateway.Attachment{Kind: gateway.AttachmentImage, Content: payload}, "is this wheat?")
	if err != nil {
		t.Fatalf("normalizeImage: %v", err)
	}
	if !strings.Contains(content.Parts[0].Text, "is this wheat?") {
		t.Fatalf("instruction = %q", content.Parts[0].Text)
	}
}

func TestNormalizeImageRejectsBadBase64(t *testing.T) {
	_, err := normalizeImage(&gateway.Attachment{Kind: gateway.AttachmentImage, Content: "!!not-base64!!"}, "")
	if !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestNormalizeDocumentPreviewTruncation(t *testing.T) {
	doc := strings.Repeat("d", documentPreviewBytes+100)
	att := gateway.Attachment{
		Kind:    gateway.AttachmentDocument,
		Name:    "rapport.txt",
		Content: base64.StdEncoding.EncodeToString([]byte(doc)),
	}
	content, err := normalizeDocument(&att, "")
	if err != nil {
		t.Fatalf("normalizeDocument: %v", err)
	}
	text := content.PlainText()
	if !strings.Contains(text, `"rapport.txt"`) {
		t.Errorf("document name missing from %q", text)
	}
	if !strings.Contains(text, "[... document truncated ...]") {
		t.Error("truncation marker missing")
	}
	if strings.Contains(text, strings.Repeat("d", documentPreviewBytes+1)) {
		t.Error("preview exceeds the byte cap")
	}
}

func TestNormalizeDocumentPreviewKeepsRunesIntact(t *testing.T) {
	// One ASCII byte then two-byte runes: the byte cap lands mid-rune.
	doc := "a" + strings.Repeat("é", documentPreviewBytes)
	att := gateway.Attachment{
		Kind:    gateway.AttachmentDocument,
		Content: base64.StdEncoding.EncodeToString([]byte(doc)),
	}
	content, err := normalizeDocument(&att, "")
	if err != nil {
		t.Fatalf("normalizeDocument: %v", err)
	}
	text := content.PlainText()
	if !utf8.ValidString(text) {
		t.Error("preview contains a split rune")
	}
	if !strings.Contains(text, "[... document truncated ...]") {
		t.Error("truncation marker missing")
	}
}

func TestNormalizeDocumentShortPayloadUntruncated(t *testing.T) {
	att := gateway.Attachment{
		Kind:    gateway.AttachmentDocument,
		Content: base64.StdEncoding.EncodeToString([]byte("short doc")),
	}
	content, err := normalizeDocument(&att, "summarize please")
	if err != nil {
		t.Fatalf("normalizeDocument: %v", err)
	}
	text := content.PlainText()
	if strings.Contains(text, "truncated") {
		t.Errorf("short document was truncated: %q", text)
	}
	if !strings.Contains(text, "summarize please") {
		t.Errorf("visitor instruction missing from %q", text)
	}
}

func TestNormalizeAudioSuccess(t *testing.T) {
	svc := newTestService(t, &testutil.FakeTranscriber{Text: "quels sont vos produits"})
	att := gateway.Attachment{Kind: gateway.AttachmentAudio, Content: base64.StdEncoding.EncodeToString([]byte("audio"))}

	content := svc.normalizeAudio(context.Background(), &att, "")
	if !strings.Contains(content.PlainText(), "quels sont vos produits") {
		t.Fatalf("transcript missing from %q", content.PlainText())
	}
}

func TestNormalizeAudioDegradation(t *testing.T) {
	goodPayload := base64.StdEncoding.EncodeToString([]byte("audio"))

	tests := []struct {
		name        string
		transcriber gateway.Transcriber
		content     string
	}{
		{"no transcriber configured", nil, goodPayload},
		{"transcriber error", &testutil.FakeTranscriber{Err: errors.New("stt down")}, goodPayload},
		{"undecodable payload", &testutil.FakeTranscriber{Text: "unused"}, "%%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.transcriber)
			att := gateway.Attachment{Kind: gateway.AttachmentAudio, Content: tt.content}

			content := svc.normalizeAudio(context.Background(), &att, "")
			if !strings.Contains(content.PlainText(), "could not be transcribed") {
				t.Fatalf("expected the degraded instruction, got %q", content.PlainText())
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	raw := []byte("payload")
	encoded := base64.StdEncoding.EncodeToString(raw)

	payload, mediaType, err := decodePayload("data:image/png;base64," + encoded)
	if err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if string(payload) != "payload" || mediaType != "image/png" {
		t.Fatalf("got %q / %q", payload, mediaType)
	}

	payload, mediaType, err = decodePayload(encoded)
	if err != nil {
		t.Fatalf("decodePayload bare: %v", err)
	}
	if string(payload) != "payload" || mediaType != "" {
		t.Fatalf("bare got %q / %q", payload, mediaType)
	}

	if _, _, err := decodePayload("data:no-comma"); !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("malformed URI err = %v, want ErrBadRequest", err)
	}
}
