package gateway

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageContentUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantText  string
		wantParts int
		wantValid bool
	}{
		{"plain string", `"hello"`, "hello", 0, true},
		{"empty string", `""`, "", 0, true},
		{"parts array", `[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"data:x"}}]`, "", 2, true},
		{"empty array", `[]`, "", 0, true},
		{"object", `{"text":"a"}`, "", 0, false},
		{"number", `42`, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mc MessageContent
			if err := json.Unmarshal([]byte(tt.input), &mc); err != nil {
				t.Fatalf("unmarshal returned error: %v", err)
			}
			if mc.IsValid() != tt.wantValid {
				t.Errorf("IsValid = %v, want %v", mc.IsValid(), tt.wantValid)
			}
			if mc.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", mc.Text, tt.wantText)
			}
			if len(mc.Parts) != tt.wantParts {
				t.Errorf("Parts = %d, want %d", len(mc.Parts), tt.wantParts)
			}
		})
	}
}

func TestMessageContentRoundTrip(t *testing.T) {
	in := `{"role":"user","content":[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}]}`
	var turn ChatTurn
	if err := json.Unmarshal([]byte(in), &turn); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !turn.Content.IsParts() || !turn.Content.HasImagePart() {
		t.Fatalf("content = %+v", turn.Content)
	}

	out, err := json.Marshal(turn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// The parts shape must survive; a string shape would start with a quote.
	if !strings.Contains(string(out), `"content":[`) {
		t.Errorf("marshaled shape changed: %s", out)
	}

	str := TextContent("plain")
	out, err = json.Marshal(ChatTurn{Role: RoleUser, Content: str})
	if err != nil {
		t.Fatalf("marshal string: %v", err)
	}
	if !strings.Contains(string(out), `"content":"plain"`) {
		t.Errorf("string shape changed: %s", out)
	}
}

func TestMessageContentPlainText(t *testing.T) {
	mc := PartsContent(
		ContentPart{Type: PartText, Text: "first"},
		ContentPart{Type: PartImage, ImageURL: &ImageURL{URL: "data:x"}},
		ContentPart{Type: PartText, Text: "second"},
	)
	if got := mc.PlainText(); got != "first\nsecond" {
		t.Errorf("PlainText = %q", got)
	}
	if got := TextContent("just text").PlainText(); got != "just text" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestSanitizeVisitorID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"visitor-123_ok", "visitor-123_ok"},
		{"héllo wörld!", "hllowrld"},
		{"<script>alert(1)</script>", "scriptalert1script"},
		{"", "anonymous"},
		{"!!!", "anonymous"},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		if got := SanitizeVisitorID(tt.in); got != tt.want {
			t.Errorf("SanitizeVisitorID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestMetaContext(t *testing.T) {
	ctx := ContextWithRequestID(t.Context(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q", got)
	}

	// ClientID piggybacks on the same metadata without a new context.
	ctx2 := ContextWithClientID(ctx, "1.2.3.4")
	if ctx2 != ctx {
		t.Error("expected in-place metadata update")
	}
	if got := ClientIDFromContext(ctx); got != "1.2.3.4" {
		t.Errorf("ClientIDFromContext = %q", got)
	}

	if got := RequestIDFromContext(t.Context()); got != "" {
		t.Errorf("empty context RequestID = %q", got)
	}
}
