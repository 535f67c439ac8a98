package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuditEntry is one mutation recorded by the audit worker.
type AuditEntry struct {
	ID         int64
	UserID     string
	Entity     string
	EntityID   string
	Action     string
	OccurredAt time.Time
}

func (r *SQLiteRepository) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (user_id, entity, entity_id, action, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Entity, e.EntityID, e.Action, e.OccurredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountAuditEntries(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

// PruneAuditEntries deletes entries older than the cutoff and returns how
// many rows were removed.
func (r *SQLiteRepository) PruneAuditEntries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE occurred_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune audit rows affected: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Audit entries pruned",
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return removed, nil
}
