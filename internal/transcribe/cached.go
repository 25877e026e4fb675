package transcribe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// entry wraps a cached transcript with its expiration time.
type entry struct {
	text      string
	expiresAt time.Time
}

var _ gateway.Transcriber = (*Cached)(nil)

// Cached wraps a Transcriber with an in-memory W-TinyLFU cache keyed by
// the SHA-256 of the audio payload. Browser retries of the same voice
// clip then skip the metered speech-to-text call. Only successful
// transcriptions are cached; failures always retry upstream.
type Cached struct {
	next  gateway.Transcriber
	cache *otter.Cache[string, entry]
	ttl   time.Duration
}

// NewCached creates a caching wrapper with the given max entry count
// and TTL.
func NewCached(next gateway.Transcriber, maxSize int, ttl time.Duration) (*Cached, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("create transcription cache: %w", err)
	}
	return &Cached{next: next, cache: c, ttl: ttl}, nil
}

// Transcribe returns a cached transcript when present, delegating to
// the wrapped Transcriber otherwise.
func (c *Cached) Transcribe(ctx context.Context, audio []byte) (string, error) {
	sum := sha256.Sum256(audio)
	key := hex.EncodeToString(sum[:])

	if e, ok := c.cache.GetIfPresent(key); ok {
		if time.Now().Before(e.expiresAt) {
			return e.text, nil
		}
		c.cache.Invalidate(key)
	}

	text, err := c.next.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, entry{text: text, expiresAt: time.Now().Add(c.ttl)})
	return text, nil
}
