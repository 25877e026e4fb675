package sqlite

import (
	"context"
	"testing"
	"time"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAudit_Batch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	records := []gateway.AuditRecord{
		{ID: "a-1", SessionKey: "visitor-1", Excerpt: "bonjour", Status: gateway.AuditStatusStreaming, Language: "fr", CreatedAt: now},
		{ID: "a-2", SessionKey: "visitor-1", Excerpt: "merci", Status: gateway.AuditStatusStreaming, Language: "fr", CreatedAt: now.Add(time.Second)},
		{ID: "a-3", SessionKey: "visitor-2", Excerpt: "hello", Status: gateway.AuditStatusStreaming, Language: "en", CreatedAt: now},
	}
	if err := s.InsertAudit(ctx, records); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListAuditBySession(ctx, "visitor-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Excerpt != "merci" {
		t.Errorf("newest first: got %q", got[0].Excerpt)
	}
	if got[0].Status != gateway.AuditStatusStreaming {
		t.Errorf("status = %q", got[0].Status)
	}
}

func TestInsertAudit_Empty(t *testing.T) {
	s := newStore(t)
	if err := s.InsertAudit(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestPing(t *testing.T) {
	s := newStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
