// Package timeutil provides calendar-period utilities for XP history
// bucketing. All functions are pure: "now" is always passed in explicitly,
// and boundaries are computed in the location carried by the input time.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Period identifies a history bucketing window.
type Period string

const (
	// PeriodDaily buckets by calendar day.
	PeriodDaily Period = "daily"
	// PeriodWeekly buckets by 7-day window anchored on a week-start day.
	PeriodWeekly Period = "weekly"
	// PeriodMonthly buckets by calendar month.
	PeriodMonthly Period = "monthly"
)

// AllPeriods lists every bucketing window in the order history is maintained.
var AllPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// IsValid checks if the period is one of the known bucketing windows.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// String returns the string representation.
func (p Period) String() string {
	return string(p)
}

// ParsePeriod parses a string into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.IsValid() {
		return "", fmt.Errorf("timeutil: unknown period %q", s)
	}
	return p, nil
}

// DefaultWeekStart is the week-start day used when none is configured.
// Sunday matches the weekly charting windows the mobile client renders.
const DefaultWeekStart = time.Sunday

// StartOfDay returns midnight of the day containing t, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent weekStart day at or
// before t, in t's location.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	days := int(t.Weekday()) - int(weekStart)
	if days < 0 {
		days += 7
	}
	return StartOfDay(t.AddDate(0, 0, -days))
}

// StartOfMonth returns midnight of the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PeriodStart returns the canonical start timestamp of the bucket that
// contains now for the given period. Records are keyed by this value, so
// two calls inside the same window must return identical timestamps.
func PeriodStart(now time.Time, period Period, weekStart time.Weekday) time.Time {
	switch period {
	case PeriodWeekly:
		return StartOfWeek(now, weekStart)
	case PeriodMonthly:
		return StartOfMonth(now)
	default:
		return StartOfDay(now)
	}
}

// NextPeriodStart returns the start of the window immediately following the
// one beginning at periodStart. Used as the exclusive upper bound when
// querying for an open bucket.
func NextPeriodStart(periodStart time.Time, period Period) time.Time {
	switch period {
	case PeriodWeekly:
		return periodStart.AddDate(0, 0, 7)
	case PeriodMonthly:
		return periodStart.AddDate(0, 1, 0)
	default:
		return periodStart.AddDate(0, 0, 1)
	}
}

// SameBucket reports whether a and b fall into the same period window.
func SameBucket(a, b time.Time, period Period, weekStart time.Weekday) bool {
	return PeriodStart(a, period, weekStart).Equal(PeriodStart(b, period, weekStart))
}

// IsSameDay checks if two times are on the same calendar day in a's location.
func IsSameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// FormatDate is the standard date format (YYYY-MM-DD) for bucket keys in logs.
const FormatDate = "2006-01-02"

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return t.Format(FormatDate)
}
