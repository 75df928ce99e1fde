// Package schedule computes lunch dates: which calendar day a request
// refers to, subject to the weekday preferences of the student and the
// daily cancellation cutoff. All functions are pure; callers supply "now".
package schedule

import (
	"fmt"
	"time"
)

// The automatic ordering job places orders each morning. After the cutoff a
// same-day cancellation can no longer stop a placed order, so the
// cancellation method switches from e-mail to a direct order flag.
const (
	CutoffHour   = 13
	CutoffMinute = 15
)

// CutoffTime returns the cancellation cutoff (13:15:00) for the calendar day
// of date, in date's location.
func CutoffTime(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, CutoffHour, CutoffMinute, 0, 0, date.Location())
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISODate renders t as YYYY-MM-DD. Lookups and persistence always compare
// dates through this representation so time-of-day and timezone shifts
// cannot move a date across midnight.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDayMonth renders t as DD/MM for user-facing text.
func FormatDayMonth(t time.Time) string {
	return t.Format("02/01")
}

// ParseISODate parses a YYYY-MM-DD string in the given location.
func ParseISODate(iso string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", iso, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid date %q: %w", iso, err)
	}
	return t, nil
}

// NextDateForWeekday returns the next occurrence of target on/after now's
// day. When the target falls today and now is already past today's cutoff,
// it advances a full week.
func NextDateForWeekday(now time.Time, target time.Weekday) time.Time {
	daysAhead := (int(target) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 && now.After(CutoffTime(now)) {
		daysAhead = 7
	}
	return DateOnly(now).AddDate(0, 0, daysAhead)
}

// NextPreferredDate computes the next actionable lunch date: today if now is
// at/before today's cutoff, else tomorrow, then forward until a weekday in
// preferred (1=Monday..5=Friday) is hit. Weekends are always skipped, as is
// excludedISO (the date of the most recent cancellation, so a just-cancelled
// day is not offered again). An empty preferred set accepts any weekday.
func NextPreferredDate(now time.Time, preferred []int, excludedISO string) time.Time {
	candidate := startCandidate(now)

	for i := 0; i < 7; i++ {
		wd := candidate.Weekday()
		switch {
		case wd == time.Saturday || wd == time.Sunday:
		case excludedISO != "" && ISODate(candidate) == excludedISO:
		case len(preferred) == 0 || containsWeekday(preferred, int(wd)):
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}

	return DefaultCancellationDate(now)
}

// DefaultCancellationDate is the fallback target: the next non-weekend day
// starting from today (or tomorrow when past cutoff), ignoring preferences.
func DefaultCancellationDate(now time.Time) time.Time {
	candidate := startCandidate(now)
	for candidate.Weekday() == time.Saturday || candidate.Weekday() == time.Sunday {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func startCandidate(now time.Time) time.Time {
	if now.After(CutoffTime(now)) {
		return DateOnly(now).AddDate(0, 0, 1)
	}
	return DateOnly(now)
}

func containsWeekday(days []int, wd int) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}
