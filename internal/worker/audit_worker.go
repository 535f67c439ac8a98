package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"traccia/internal/amqp"
	applog "traccia/internal/log"
	"traccia/internal/storage"
)

// EventConsumer is the queue surface the worker consumes from.
type EventConsumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.ActivityEventMessage) error) error
}

// AuditWorker turns activity events into durable audit entries and prunes
// entries past the retention window.
type AuditWorker struct {
	storage       *storage.SQLiteRepository
	retention     time.Duration
	pruneInterval time.Duration
}

func NewAuditWorker(store *storage.SQLiteRepository, retention, pruneInterval time.Duration) *AuditWorker {
	return &AuditWorker{
		storage:       store,
		retention:     retention,
		pruneInterval: pruneInterval,
	}
}

// HandleEvent records a single activity event. Malformed events are logged
// and dropped; storage failures propagate so the message gets redelivered.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *amqp.ActivityEventMessage) error {
	entity, action, ok := splitEvent(msg.Event)
	if !ok {
		slog.WarnContext(ctx, "Dropping event with unknown name", applog.FieldEvent, msg.Event)
		return nil
	}

	entityID := msg.ActivityID
	if entity == "log" && msg.LogID != "" {
		entityID = msg.LogID
	}

	occurredAt := msg.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	entry := storage.AuditEntry{
		UserID:     msg.UserID,
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		OccurredAt: occurredAt,
	}

	if err := w.storage.InsertAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Audit entry recorded",
		applog.FieldEvent, msg.Event,
		applog.FieldUserID, msg.UserID,
		"entity_id", entityID)

	return nil
}

// PruneOnce removes entries older than the retention window.
func (w *AuditWorker) PruneOnce(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-w.retention)
	return w.storage.PruneAuditEntries(ctx, cutoff)
}

// Run consumes events and prunes periodically until the context is
// cancelled or either loop fails.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeEvents(ctx, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.pruneInterval)
		defer ticker.Stop()

		// Prune once at startup to recover from downtime.
		if _, err := w.PruneOnce(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Startup prune failed", applog.FieldError, err)
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if _, err := w.PruneOnce(ctx, now); err != nil {
					slog.ErrorContext(ctx, "Periodic prune failed", applog.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}

// splitEvent maps "activity.created" to ("activity", "created").
func splitEvent(event string) (entity, action string, ok bool) {
	entity, action, found := strings.Cut(event, ".")
	if !found || entity == "" || action == "" {
		return "", "", false
	}
	switch entity {
	case "activity", "log":
		return entity, action, true
	}
	return "", "", false
}
