package sqlite

import (
	"context"
	"strings"
	"time"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// InsertAudit batch-inserts audit records. A single multi-row INSERT
// avoids N round-trips for large batches.
func (s *Store) InsertAudit(ctx context.Context, records []gateway.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 6
	placeholders := make([]string, len(records))
	args := make([]any, 0, len(records)*cols)

	for i, r := range records {
		placeholders[i] = "(?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.ID, r.SessionKey, r.Excerpt, r.Status, r.Language,
			r.CreatedAt.UTC().Format(time.RFC3339),
		)
	}

	query := `INSERT INTO audit_log (id, session_key, excerpt, status, language, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.write.ExecContext(ctx, query, args...)
	return err
}

// ListAuditBySession returns the most recent records for a session key,
// newest first. Used by operators inspecting a conversation trail.
func (s *Store) ListAuditBySession(ctx context.Context, sessionKey string, limit int) ([]gateway.AuditRecord, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, session_key, excerpt, status, language, created_at
		 FROM audit_log WHERE session_key = ? ORDER BY created_at DESC LIMIT ?`,
		sessionKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gateway.AuditRecord
	for rows.Next() {
		var r gateway.AuditRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.SessionKey, &r.Excerpt, &r.Status, &r.Language, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
