// Package storage defines persistence interfaces for the gateway.
package storage

import (
	"context"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// AuditStore manages append-only audit record persistence. Inserts are
// best-effort: idempotency is not required and failures must be
// tolerable to callers.
type AuditStore interface {
	InsertAudit(ctx context.Context, records []gateway.AuditRecord) error
}
