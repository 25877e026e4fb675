// Package testutil provides configurable test fakes for gateway interfaces.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// FakeStreamer is a configurable gateway.ChatStreamer for testing.
type FakeStreamer struct {
	OpenFn func(ctx context.Context, req *gateway.UpstreamRequest) (*gateway.StreamHandle, error)

	mu       sync.Mutex
	requests []*gateway.UpstreamRequest
}

// OpenStream records the request and delegates to OpenFn, or returns a
// canned two-chunk stream.
func (f *FakeStreamer) OpenStream(ctx context.Context, req *gateway.UpstreamRequest) (*gateway.StreamHandle, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.OpenFn != nil {
		return f.OpenFn(ctx, req)
	}
	return &gateway.StreamHandle{
		Body:        io.NopCloser(strings.NewReader("data: {\"delta\":\"hi\"}\n\ndata: [DONE]\n\n")),
		ContentType: "text/event-stream",
	}, nil
}

// Requests returns the upstream requests seen so far.
func (f *FakeStreamer) Requests() []*gateway.UpstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*gateway.UpstreamRequest(nil), f.requests...)
}

// LastRequest returns the most recent upstream request, or nil.
func (f *FakeStreamer) LastRequest() *gateway.UpstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

// FakeTranscriber is a configurable gateway.Transcriber for testing.
type FakeTranscriber struct {
	Text string
	Err  error
}

// Transcribe returns the configured text or error.
func (f *FakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// FakeAuditStore is a configurable audit store for testing.
type FakeAuditStore struct {
	Err error

	mu      sync.Mutex
	records []gateway.AuditRecord
}

// InsertAudit collects records or returns the configured error.
func (f *FakeAuditStore) InsertAudit(_ context.Context, records []gateway.AuditRecord) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	return nil
}

// Records returns the records inserted so far.
func (f *FakeAuditStore) Records() []gateway.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.AuditRecord(nil), f.records...)
}
