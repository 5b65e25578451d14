package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

var (
	ErrScheduleConflict = errors.New("schedule was modified by another writer")
	ErrTableNotAllowed  = errors.New("table is not in the allowed set")
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// TimeOfDay is a wall-clock firing time, persisted as "HH:MM:SS".
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Schedule is the singleton configuration for automatic backups. Version
// increments on every save; writers carry the version they read so a stale
// write is rejected instead of silently overwriting a newer one.
type Schedule struct {
	Enabled        bool
	Frequency      Frequency
	TimeOfDay      TimeOfDay
	DayOfWeek      int // 1=Monday .. 7=Sunday, weekly only
	DayOfMonth     int // 1..31, monthly only
	Tables         []string
	RetentionCount int
	LastRun        *time.Time
	NextRun        *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Schedule) Validate() error {
	if !s.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}
	if s.Frequency == FrequencyWeekly && (s.DayOfWeek < 1 || s.DayOfWeek > 7) {
		return fmt.Errorf("day_of_week must be 1..7, got %d", s.DayOfWeek)
	}
	if s.Frequency == FrequencyMonthly && (s.DayOfMonth < 1 || s.DayOfMonth > 31) {
		return fmt.Errorf("day_of_month must be 1..31, got %d", s.DayOfMonth)
	}
	if s.RetentionCount < 1 {
		return fmt.Errorf("retention_count must be positive, got %d", s.RetentionCount)
	}
	if s.Enabled && len(s.Tables) == 0 {
		return fmt.Errorf("at least one table is required when the schedule is enabled")
	}
	return nil
}

// ValidateTables checks a requested table set against the configured
// allow-list and returns the set deduplicated and sorted. Free-form table
// names never reach the extractor.
func ValidateTables(requested, allowed []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("no tables requested")
	}

	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}

	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if !permitted[name] {
			return nil, fmt.Errorf("%w: %q", ErrTableNotAllowed, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	sort.Strings(out)
	return out, nil
}
