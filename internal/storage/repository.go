package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"traccia/internal/core"
	applog "traccia/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistent store behind the mutation layer and
// the aggregation reads. Every mutating method runs as one transaction
// scoped to a single entity graph.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys must be enabled per connection for the log cascade.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a user row. Registration itself lives with the
// external auth provider; this exists for seeding and tests.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID, "email", u.Email)
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt)
	return u, nil
}

func (r *SQLiteRepository) CreateActivity(ctx context.Context, a core.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Color, a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity saved to SQLite",
		"id", a.ID,
		"name", a.Name,
		applog.FieldUserID, a.UserID)
	return nil
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, id string) (core.Activity, error) {
	var (
		a         core.Activity
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at FROM activities WHERE id = ?`, id).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Color, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Activity{}, core.ErrNotFound
	}
	if err != nil {
		return core.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	a.CreatedAt = time.Unix(0, createdAt)
	return a, nil
}

// ListActivitiesByUser returns the user's activities newest-created first.
func (r *SQLiteRepository) ListActivitiesByUser(ctx context.Context, userID string) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at FROM activities
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []core.Activity
	for rows.Next() {
		var (
			a         core.Activity
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.CreatedAt = time.Unix(0, createdAt)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, id, name, color string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE activities SET name = ?, color = ? WHERE id = ?`, name, color, id)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update activity rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Activity updated", "id", id, "name", name, "color", color)
	return nil
}

// DeleteActivity removes the activity and all of its logs in one
// transaction so no orphan logs remain queryable.
func (r *SQLiteRepository) DeleteActivity(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete activity: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM logs WHERE activity_id = ?`, id); err != nil {
		return fmt.Errorf("delete activity logs: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete activity rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity deleted with logs", "id", id)
	return nil
}

// FindActivityOwner resolves the owning user id of an activity. The
// mutation layer calls this before every activity write.
func (r *SQLiteRepository) FindActivityOwner(ctx context.Context, activityID string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM activities WHERE id = ?`, activityID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find activity owner: %w", err)
	}
	return userID, nil
}

// FindLogOwner resolves a log's effective owner by walking through its
// parent activity.
func (r *SQLiteRepository) FindLogOwner(ctx context.Context, logID string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT a.user_id FROM logs l JOIN activities a ON a.id = l.activity_id WHERE l.id = ?`,
		logID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find log owner: %w", err)
	}
	return userID, nil
}

func (r *SQLiteRepository) GetLog(ctx context.Context, id string) (core.Log, error) {
	var (
		l          core.Log
		occurredAt int64
		createdAt  int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, activity_id, count, occurred_at, created_at FROM logs WHERE id = ?`, id).
		Scan(&l.ID, &l.ActivityID, &l.Count, &occurredAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Log{}, core.ErrNotFound
	}
	if err != nil {
		return core.Log{}, fmt.Errorf("get log: %w", err)
	}
	l.OccurredAt = time.Unix(0, occurredAt)
	l.CreatedAt = time.Unix(0, createdAt)
	return l, nil
}

func (r *SQLiteRepository) CreateLog(ctx context.Context, l core.Log) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO logs (id, activity_id, count, occurred_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.ActivityID, l.Count, l.OccurredAt.UnixNano(), l.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}

	slog.InfoContext(ctx, "Log saved to SQLite",
		"id", l.ID,
		applog.FieldActivityID, l.ActivityID,
		applog.FieldCount, l.Count)
	return nil
}

func (r *SQLiteRepository) DeleteLog(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete log rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Log deleted", "id", id)
	return nil
}

// ListLogsByActivity returns all logs of an activity, newest first.
func (r *SQLiteRepository) ListLogsByActivity(ctx context.Context, activityID string) ([]core.Log, error) {
	return r.queryLogs(ctx,
		`SELECT id, activity_id, count, occurred_at, created_at FROM logs
		 WHERE activity_id = ? ORDER BY occurred_at DESC`, activityID)
}

// ListLogsInRange returns logs of an activity whose occurrence timestamp
// lies in [from, to], both bounds inclusive, oldest first.
func (r *SQLiteRepository) ListLogsInRange(ctx context.Context, activityID string, from, to time.Time) ([]core.Log, error) {
	return r.queryLogs(ctx,
		`SELECT id, activity_id, count, occurred_at, created_at FROM logs
		 WHERE activity_id = ? AND occurred_at >= ? AND occurred_at <= ?
		 ORDER BY occurred_at ASC`, activityID, from.UnixNano(), to.UnixNano())
}

func (r *SQLiteRepository) queryLogs(ctx context.Context, query string, args ...any) ([]core.Log, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []core.Log
	for rows.Next() {
		var (
			l          core.Log
			occurredAt int64
			createdAt  int64
		)
		if err := rows.Scan(&l.ID, &l.ActivityID, &l.Count, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		l.OccurredAt = time.Unix(0, occurredAt)
		l.CreatedAt = time.Unix(0, createdAt)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}
