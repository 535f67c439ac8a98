package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"traccia/internal/amqp"
	"traccia/internal/core"
	applog "traccia/internal/log"
	"traccia/internal/observability"
)

// Repository is the persistence surface the mutation layer needs. The
// owner-resolution methods keep ownership checks decoupled from any
// storage technology.
type Repository interface {
	CreateActivity(ctx context.Context, a core.Activity) error
	GetActivity(ctx context.Context, id string) (core.Activity, error)
	ListActivitiesByUser(ctx context.Context, userID string) ([]core.Activity, error)
	UpdateActivity(ctx context.Context, id, name, color string) error
	DeleteActivity(ctx context.Context, id string) error
	FindActivityOwner(ctx context.Context, activityID string) (string, error)
	FindLogOwner(ctx context.Context, logID string) (string, error)
	GetLog(ctx context.Context, id string) (core.Log, error)
	CreateLog(ctx context.Context, l core.Log) error
	DeleteLog(ctx context.Context, id string) error
	ListLogsByActivity(ctx context.Context, activityID string) ([]core.Log, error)
	ListLogsInRange(ctx context.Context, activityID string, from, to time.Time) ([]core.Log, error)
}

// EventPublisher fans mutation events out to the audit pipeline.
type EventPublisher interface {
	PublishActivityEvent(ctx context.Context, msg *amqp.ActivityEventMessage) error
}

// Invalidations names the cached views a mutation made stale. The caller
// decides how to refresh them.
type Invalidations []string

// ViewActivities is the cache key of a user's activity list.
func ViewActivities(userID string) string { return "activities:" + userID }

// ViewActivity is the cache key of a single activity's detail view.
func ViewActivity(activityID string) string { return "activity:" + activityID }

// ActivityWithCounts pairs an activity with its dashboard counters.
type ActivityWithCounts struct {
	core.Activity
	MonthCount int
	TodayCount int
}

// ActivityDetail is the full detail view: the raw logs newest first plus
// the derived 30-day series and year heatmap.
type ActivityDetail struct {
	Activity core.Activity
	Logs     []core.Log
	Series   []core.DayCount
	Heatmap  core.Heatmap
}

// SeriesDays is the size of the dense per-day history window.
const SeriesDays = 30

// ActivityService is the mutation layer: validated, ownership-checked
// operations over activities and logs. Every operation takes the acting
// user's id explicitly; there is no ambient session state. The event
// publisher is optional (nil disables the audit fan-out).
type ActivityService struct {
	repo   Repository
	events EventPublisher
}

func NewActivityService(repo Repository, events EventPublisher) *ActivityService {
	return &ActivityService{repo: repo, events: events}
}

// CreateActivity inserts a new activity owned by the caller. An empty
// color falls back to the default tag.
func (s *ActivityService) CreateActivity(ctx context.Context, userID, name, color string) (core.Activity, Invalidations, error) {
	if userID == "" {
		return core.Activity{}, nil, core.ErrUnauthorized
	}

	if color == "" {
		color = core.DefaultColor
	}
	activity := core.Activity{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Color:     color,
		CreatedAt: time.Now(),
	}
	if err := activity.Validate(); err != nil {
		return core.Activity{}, nil, err
	}

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return core.Activity{}, nil, fmt.Errorf("create activity: %w", err)
	}
	observability.RecordMutation("create_activity")
	s.publish(ctx, amqp.EventActivityCreated, userID, activity.ID, "")

	return activity, Invalidations{ViewActivities(userID)}, nil
}

// UpdateActivity renames or recolors an activity in place. Existence is
// checked before ownership, so a missing id is NotFound everywhere. An
// empty color leaves the current tag untouched.
func (s *ActivityService) UpdateActivity(ctx context.Context, userID, activityID, name, color string) (Invalidations, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}

	if err := s.checkActivityOwner(ctx, userID, activityID); err != nil {
		return nil, err
	}

	updated := core.Activity{UserID: userID, Name: strings.TrimSpace(name), Color: color}
	if updated.Color == "" {
		// A rename-only update keeps the current color tag.
		current, err := s.repo.GetActivity(ctx, activityID)
		if err != nil {
			return nil, fmt.Errorf("get activity: %w", err)
		}
		updated.Color = current.Color
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateActivity(ctx, activityID, updated.Name, updated.Color); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	observability.RecordMutation("update_activity")
	s.publish(ctx, amqp.EventActivityUpdated, userID, activityID, "")

	return Invalidations{ViewActivities(userID), ViewActivity(activityID)}, nil
}

// DeleteActivity removes the activity and cascades to all of its logs.
func (s *ActivityService) DeleteActivity(ctx context.Context, userID, activityID string) (Invalidations, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}

	if err := s.checkActivityOwner(ctx, userID, activityID); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteActivity(ctx, activityID); err != nil {
		return nil, fmt.Errorf("delete activity: %w", err)
	}
	observability.RecordMutation("delete_activity")
	s.publish(ctx, amqp.EventActivityDeleted, userID, activityID, "")

	return Invalidations{ViewActivities(userID), ViewActivity(activityID)}, nil
}

// LogActivity records one occurrence against an activity the caller owns:
// count 1, occurrence time now.
func (s *ActivityService) LogActivity(ctx context.Context, userID, activityID string, now time.Time) (core.Log, Invalidations, error) {
	if userID == "" {
		return core.Log{}, nil, core.ErrUnauthorized
	}

	if err := s.checkActivityOwner(ctx, userID, activityID); err != nil {
		return core.Log{}, nil, err
	}

	log := core.Log{
		ID:         uuid.NewString(),
		ActivityID: activityID,
		Count:      1,
		OccurredAt: now,
		CreatedAt:  time.Now(),
	}
	if err := log.Validate(); err != nil {
		return core.Log{}, nil, err
	}

	if err := s.repo.CreateLog(ctx, log); err != nil {
		return core.Log{}, nil, fmt.Errorf("create log: %w", err)
	}
	observability.RecordMutation("log_activity")
	observability.RecordLogOccurrence(now)
	s.publish(ctx, amqp.EventLogCreated, userID, activityID, log.ID)

	return log, Invalidations{ViewActivities(userID), ViewActivity(activityID)}, nil
}

// DeleteLog removes a single log. Ownership is transitive through the
// parent activity.
func (s *ActivityService) DeleteLog(ctx context.Context, userID, logID string) (Invalidations, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}

	owner, err := s.repo.FindLogOwner(ctx, logID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, core.ErrUnauthorized
	}

	// The parent id is needed for the invalidation hint before the row goes.
	log, err := s.repo.GetLog(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}

	if err := s.repo.DeleteLog(ctx, logID); err != nil {
		return nil, fmt.Errorf("delete log: %w", err)
	}
	observability.RecordMutation("delete_log")
	s.publish(ctx, amqp.EventLogDeleted, userID, log.ActivityID, logID)

	return Invalidations{ViewActivities(userID), ViewActivity(log.ActivityID)}, nil
}

// GetActivity returns the full detail view. A missing id yields
// (nil, nil) so the caller can render not-found; foreign ownership is an
// authorization failure, not a lookup miss.
func (s *ActivityService) GetActivity(ctx context.Context, userID, activityID string, now time.Time) (*ActivityDetail, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}

	activity, err := s.repo.GetActivity(ctx, activityID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if activity.UserID != userID {
		return nil, core.ErrUnauthorized
	}

	logs, err := s.repo.ListLogsByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	observability.RecordAggregationRead("activity_detail")
	return &ActivityDetail{
		Activity: activity,
		Logs:     logs,
		Series:   core.DailySeries(logs, now, SeriesDays),
		Heatmap:  core.YearHeatmap(logs, now),
	}, nil
}

// GetActivities returns the caller's activities newest-created first,
// each with its month and today counters. An unauthenticated caller gets
// an empty list, not an error.
func (s *ActivityService) GetActivities(ctx context.Context, userID string, now time.Time) ([]ActivityWithCounts, error) {
	if userID == "" {
		return []ActivityWithCounts{}, nil
	}

	activities, err := s.repo.ListActivitiesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	monthStart, monthEnd := core.MonthBounds(now)
	result := make([]ActivityWithCounts, 0, len(activities))
	for _, activity := range activities {
		// The month window covers today too, so one range query feeds both
		// counters.
		logs, err := s.repo.ListLogsInRange(ctx, activity.ID, monthStart, monthEnd)
		if err != nil {
			return nil, fmt.Errorf("list logs for activity %s: %w", activity.ID, err)
		}
		totals := core.CountTotals(logs, now)
		result = append(result, ActivityWithCounts{
			Activity:   activity,
			MonthCount: totals.Month,
			TodayCount: totals.Today,
		})
	}

	observability.RecordAggregationRead("activity_list")
	return result, nil
}

// checkActivityOwner resolves existence first, ownership second.
func (s *ActivityService) checkActivityOwner(ctx context.Context, userID, activityID string) error {
	owner, err := s.repo.FindActivityOwner(ctx, activityID)
	if err != nil {
		return err
	}
	if owner != userID {
		return core.ErrUnauthorized
	}
	return nil
}

// publish sends a best-effort audit event; a broker outage never fails
// the mutation itself.
func (s *ActivityService) publish(ctx context.Context, event, userID, activityID, logID string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewActivityEventMessage(event, userID, activityID, logID)
	if err := s.events.PublishActivityEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity event",
			applog.FieldEvent, event,
			applog.FieldActivityID, activityID,
			applog.FieldError, err)
	}
}
