package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/storage"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/telemetry"
)

const (
	auditChanSize   = 1000
	auditBatchSize  = 50
	auditFlushEvery = 5 * time.Second
	auditDrainTime  = 30 * time.Second
)

// AuditRecorder buffers audit records and batch-flushes them to the
// store. It is the fire-and-forget boundary of the request path:
// Record never blocks, write failures are logged and swallowed, and
// nothing here can alter what the caller receives.
type AuditRecorder struct {
	ch      chan gateway.AuditRecord
	store   storage.AuditStore
	metrics *telemetry.Metrics // nil = no metrics
}

// NewAuditRecorder creates an AuditRecorder backed by store.
func NewAuditRecorder(store storage.AuditStore, metrics *telemetry.Metrics) *AuditRecorder {
	return &AuditRecorder{
		ch:      make(chan gateway.AuditRecord, auditChanSize),
		store:   store,
		metrics: metrics,
	}
}

// Record enqueues an audit record. It never blocks; drops on full channel.
func (a *AuditRecorder) Record(r gateway.AuditRecord) {
	select {
	case a.ch <- r:
		if a.metrics != nil {
			a.metrics.AuditQueueLength.Set(float64(len(a.ch)))
		}
	default:
		if a.metrics != nil {
			a.metrics.AuditDropped.Inc()
		}
		slog.Warn("audit record dropped, channel full")
	}
}

// Run processes records until ctx is cancelled, then drains remaining records.
func (a *AuditRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(auditFlushEvery)
	defer ticker.Stop()

	buf := make([]gateway.AuditRecord, 0, auditBatchSize)

	for {
		select {
		case r := <-a.ch:
			buf = append(buf, r)
			if len(buf) >= auditBatchSize {
				a.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ticker.C:
			if len(buf) > 0 {
				a.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ctx.Done():
			// Drain remaining records with a timeout.
			a.drain(buf)
			return nil
		}
	}
}

func (a *AuditRecorder) drain(buf []gateway.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), auditDrainTime)
	defer cancel()

	for {
		select {
		case r := <-a.ch:
			buf = append(buf, r)
			if len(buf) >= auditBatchSize {
				a.flush(ctx, buf)
				buf = buf[:0]
			}
		default:
			// Channel empty, flush remaining.
			if len(buf) > 0 {
				a.flush(ctx, buf)
			}
			return
		}
	}
}

func (a *AuditRecorder) flush(ctx context.Context, buf []gateway.AuditRecord) {
	// Copy to avoid aliasing the caller's slice.
	batch := make([]gateway.AuditRecord, len(buf))
	copy(batch, buf)

	// Assign IDs off the hot path; callers leave ID empty.
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.Must(uuid.NewV7()).String()
		}
	}

	if err := a.store.InsertAudit(ctx, batch); err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "audit flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
	if a.metrics != nil {
		a.metrics.AuditQueueLength.Set(float64(len(a.ch)))
	}
}
