package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/testutil"
)

func newTestService(t *testing.T, transcriber gateway.Transcriber) *Service {
	t.Helper()
	return NewService(Config{
		Model:           "text-model",
		VisionModel:     "vision-model",
		HistoryWindow:   12,
		MaxMessageChars: 8000,
		DefaultLanguage: "fr",
	}, transcriber, nil)
}

func userTurn(text string) gateway.ChatTurn {
	return gateway.ChatTurn{Role: gateway.RoleUser, Content: gateway.TextContent(text)}
}

func TestPrepareRejectsEmptyMessages(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{})
	if !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestPrepareMessageLengthBoundary(t *testing.T) {
	svc := newTestService(t, nil)

	atLimit := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{userTurn(strings.Repeat("a", 8000))}}
	if _, err := svc.Prepare(context.Background(), atLimit); err != nil {
		t.Fatalf("8000 chars: unexpected error %v", err)
	}

	overLimit := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{userTurn(strings.Repeat("a", 8001))}}
	if _, err := svc.Prepare(context.Background(), overLimit); !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("8001 chars: err = %v, want ErrBadRequest", err)
	}

	// The limit counts characters: 8000 two-byte runes are within bounds.
	accented := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{userTurn(strings.Repeat("é", 8000))}}
	if _, err := svc.Prepare(context.Background(), accented); err != nil {
		t.Fatalf("8000 accented chars: unexpected error %v", err)
	}

	accentedOver := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{userTurn(strings.Repeat("é", 8001))}}
	if _, err := svc.Prepare(context.Background(), accentedOver); !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("8001 accented chars: err = %v, want ErrBadRequest", err)
	}
}

func TestPrepareRejectsOversizedTextPart(t *testing.T) {
	svc := newTestService(t, nil)
	prompt := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{{
		Role: gateway.RoleUser,
		Content: gateway.PartsContent(
			gateway.ContentPart{Type: gateway.PartText, Text: strings.Repeat("b", 8001)},
		),
	}}}
	if _, err := svc.Prepare(context.Background(), prompt); !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestPrepareRejectsInvalidContentShape(t *testing.T) {
	svc := newTestService(t, nil)
	var content gateway.MessageContent
	if err := content.UnmarshalJSON([]byte(`{"bogus":1}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	prompt := &gateway.ChatPrompt{Messages: []gateway.ChatTurn{{Role: gateway.RoleUser, Content: content}}}
	if _, err := svc.Prepare(context.Background(), prompt); !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestPrepareWindowShape(t *testing.T) {
	svc := newTestService(t, nil)

	var turns []gateway.ChatTurn
	for i := 0; i < 20; i++ {
		role := gateway.RoleUser
		if i%2 == 1 {
			role = gateway.RoleAssistant
		}
		turns = append(turns, gateway.ChatTurn{Role: role, Content: gateway.TextContent(strings.Repeat("x", i+1))})
	}
	turns = append(turns, userTurn("newest"))

	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{Messages: turns})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// 1 system + 12 history + newest
	if got := len(prep.Request.Messages); got != 14 {
		t.Fatalf("window length = %d, want 14", got)
	}
	if prep.Request.Messages[0].Role != gateway.RoleSystem {
		t.Fatalf("first turn role = %q, want system", prep.Request.Messages[0].Role)
	}
	last := prep.Request.Messages[len(prep.Request.Messages)-1]
	if last.Content.PlainText() != "newest" {
		t.Fatalf("last turn = %q, want the newest turn", last.Content.PlainText())
	}
	// The oldest surviving history turn is turns[8] (9 chars).
	if got := prep.Request.Messages[1].Content.PlainText(); len(got) != 9 {
		t.Fatalf("oldest kept history turn has %d chars, want 9", len(got))
	}
}

func TestPrepareSystemInstructionCarriesLanguageAndSession(t *testing.T) {
	svc := newTestService(t, nil)
	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages:  []gateway.ChatTurn{userTurn("bonjour")},
		VisitorID: "visitor<script>42",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	system := prep.Request.Messages[0].Content.PlainText()
	if !strings.Contains(system, "Requested language: en") {
		t.Errorf("system instruction missing requested language:\n%s", system)
	}
	if !strings.Contains(system, "Session: visitorscript42") {
		t.Errorf("system instruction missing sanitized session:\n%s", system)
	}
	if prep.SessionKey != "visitorscript42" {
		t.Errorf("SessionKey = %q", prep.SessionKey)
	}
}

func TestPrepareDefaultsLanguage(t *testing.T) {
	svc := newTestService(t, nil)
	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages: []gateway.ChatTurn{userTurn("hi")},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prep.Language != "fr" {
		t.Fatalf("Language = %q, want fr", prep.Language)
	}
	if prep.SessionKey != gateway.DefaultVisitorID {
		t.Fatalf("SessionKey = %q, want %q", prep.SessionKey, gateway.DefaultVisitorID)
	}
}

func TestPrepareSelectsVisionModelForImages(t *testing.T) {
	svc := newTestService(t, nil)

	plain, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages: []gateway.ChatTurn{userTurn("hello")},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if plain.Request.Model != "text-model" {
		t.Fatalf("model = %q, want text-model", plain.Request.Model)
	}

	withImage, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages: []gateway.ChatTurn{userTurn("what is this")},
		Attachment: &gateway.Attachment{
			Kind:    gateway.AttachmentImage,
			Content: "aGVsbG8=",
		},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if withImage.Request.Model != "vision-model" {
		t.Fatalf("model = %q, want vision-model", withImage.Request.Model)
	}
	if !withImage.Request.Stream {
		t.Fatal("Stream flag not set")
	}
}

func TestPrepareAuditRecord(t *testing.T) {
	svc := newTestService(t, nil)
	long := strings.Repeat("q", 600)
	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages:  []gateway.ChatTurn{userTurn(long)},
		VisitorID: "v-1",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	a := prep.Audit
	if a.Status != gateway.AuditStatusStreaming {
		t.Errorf("Status = %q", a.Status)
	}
	if a.SessionKey != "v-1" || a.Language != "en" {
		t.Errorf("SessionKey/Language = %q/%q", a.SessionKey, a.Language)
	}
	if len(a.Excerpt) != 500 {
		t.Errorf("Excerpt length = %d, want 500", len(a.Excerpt))
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestPrepareAuditExcerptKeepsRunesIntact(t *testing.T) {
	svc := newTestService(t, nil)
	// One ASCII byte then two-byte runes: the 500-byte cap lands mid-rune.
	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages: []gateway.ChatTurn{userTurn("a" + strings.Repeat("é", 300))},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	excerpt := prep.Audit.Excerpt
	if len(excerpt) > 500 {
		t.Errorf("Excerpt length = %d, want <= 500", len(excerpt))
	}
	if !utf8.ValidString(excerpt) {
		t.Error("Excerpt contains a split rune")
	}
}

func TestPrepareAuditExcerptPredatesNormalization(t *testing.T) {
	svc := newTestService(t, &testutil.FakeTranscriber{Text: "spoken words"})
	prep, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages: []gateway.ChatTurn{userTurn("please listen")},
		Attachment: &gateway.Attachment{
			Kind:    gateway.AttachmentAudio,
			Content: "aGVsbG8=",
		},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prep.Audit.Excerpt != "please listen" {
		t.Fatalf("Excerpt = %q, want the pre-normalization text", prep.Audit.Excerpt)
	}
	last := prep.Request.Messages[len(prep.Request.Messages)-1]
	if !strings.Contains(last.Content.PlainText(), "spoken words") {
		t.Fatalf("newest turn missing transcript: %q", last.Content.PlainText())
	}
}

func TestPrepareRejectsUnknownAttachmentKind(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Prepare(context.Background(), &gateway.ChatPrompt{
		Messages:   []gateway.ChatTurn{userTurn("hi")},
		Attachment: &gateway.Attachment{Kind: "video", Content: "aGVsbG8="},
	})
	if !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}
