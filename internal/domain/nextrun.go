package domain

import "time"

// NextRun computes the next instant at which the schedule should fire,
// strictly after now. Pure: identical inputs always yield identical outputs.
//
// The candidate starts on now's calendar day at the configured time of day
// and advances per the frequency rule until it lies in the future. Weekday
// numbering is ISO: 1=Monday .. 7=Sunday. A day_of_month past the end of the
// target month clamps to that month's last day.
func NextRun(s Schedule, now time.Time) time.Time {
	loc := now.Location()
	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		s.TimeOfDay.Hour, s.TimeOfDay.Minute, s.TimeOfDay.Second, 0, loc)

	switch s.Frequency {
	case FrequencyWeekly:
		delta := (s.DayOfWeek - isoWeekday(candidate) + 7) % 7
		candidate = candidate.AddDate(0, 0, delta)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}

	case FrequencyMonthly:
		candidate = monthlyOccurrence(candidate.Year(), candidate.Month(), s, loc)
		if !candidate.After(now) {
			year, month := candidate.Year(), candidate.Month()+1
			candidate = monthlyOccurrence(year, month, s, loc)
		}

	default: // daily
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	}

	return candidate
}

// monthlyOccurrence places the schedule's day-of-month in the given month,
// clamped to the month's last valid day. month may be time.December+1; the
// normalization in time.Date of the first-of-month carries it into the next
// year before the day is resolved.
func monthlyOccurrence(year int, month time.Month, s Schedule, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, s.TimeOfDay.Hour, s.TimeOfDay.Minute, s.TimeOfDay.Second, 0, loc)
	day := s.DayOfMonth
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7 // Sunday
}
