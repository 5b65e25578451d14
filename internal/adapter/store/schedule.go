package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rehberci/backupd/internal/domain"
)

// EnsureSchedule inserts the given defaults as the singleton row if none
// exists yet. Called once at startup so Load never finds an empty table.
func (s *Store) EnsureSchedule(ctx context.Context, defaults domain.Schedule) error {
	tablesJSON, err := json.Marshal(defaults.Tables)
	if err != nil {
		return fmt.Errorf("sqlite: marshal schedule tables: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO schedule
			(id, enabled, frequency, time_of_day, day_of_week, day_of_month,
			 tables, retention_count, last_run, next_run, version, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, 1, ?, ?)`,
		boolToInt(defaults.Enabled),
		string(defaults.Frequency),
		defaults.TimeOfDay.String(),
		defaults.DayOfWeek,
		defaults.DayOfMonth,
		string(tablesJSON),
		defaults.RetentionCount,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: seed schedule: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, frequency, time_of_day, day_of_week, day_of_month,
		       tables, retention_count, last_run, next_run, version, created_at, updated_at
		FROM schedule WHERE id = 1`)

	var (
		sched            domain.Schedule
		enabled          int
		frequency        string
		timeOfDay        string
		tablesJSON       string
		lastRun, nextRun sql.NullString
		createdAt        string
		updatedAt        string
	)
	err := row.Scan(&enabled, &frequency, &timeOfDay, &sched.DayOfWeek, &sched.DayOfMonth,
		&tablesJSON, &sched.RetentionCount, &lastRun, &nextRun, &sched.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, fmt.Errorf("sqlite: schedule row missing, store not seeded")
	}
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: load schedule: %w", err)
	}

	sched.Enabled = enabled != 0
	sched.Frequency = domain.Frequency(frequency)

	tod, err := domain.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: load schedule: %w", err)
	}
	sched.TimeOfDay = tod

	if err := json.Unmarshal([]byte(tablesJSON), &sched.Tables); err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: unmarshal schedule tables: %w", err)
	}

	if sched.LastRun, err = parseNullableInstant(lastRun); err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: parse last_run: %w", err)
	}
	if sched.NextRun, err = parseNullableInstant(nextRun); err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: parse next_run: %w", err)
	}
	if sched.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if sched.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return sched, nil
}

// Save writes the full record in a single statement guarded by the version
// the caller read. A stale version matches no row and surfaces as
// ErrScheduleConflict; last writer never silently wins.
func (s *Store) Save(ctx context.Context, sched domain.Schedule) (domain.Schedule, error) {
	tablesJSON, err := json.Marshal(sched.Tables)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: marshal schedule tables: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE schedule
		SET enabled = ?, frequency = ?, time_of_day = ?, day_of_week = ?, day_of_month = ?,
		    tables = ?, retention_count = ?, last_run = ?, next_run = ?,
		    version = version + 1, updated_at = ?
		WHERE id = 1 AND version = ?`,
		boolToInt(sched.Enabled),
		string(sched.Frequency),
		sched.TimeOfDay.String(),
		sched.DayOfWeek,
		sched.DayOfMonth,
		string(tablesJSON),
		sched.RetentionCount,
		nullableInstant(sched.LastRun),
		nullableInstant(sched.NextRun),
		now.Format(time.RFC3339Nano),
		sched.Version,
	)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: save schedule: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return domain.Schedule{}, domain.ErrScheduleConflict
	}

	sched.Version++
	sched.UpdatedAt = now
	return sched, nil
}

func parseNullableInstant(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
