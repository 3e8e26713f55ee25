// Package calendar implements business-hours time arithmetic over a
// BusinessHoursProfile. All functions are pure; malformed profiles fall
// back to plain calendar semantics rather than returning errors.
package calendar

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const (
	// maxStartSearchDays bounds the scan for the next business day.
	maxStartSearchDays = 14
	// maxAddIterations guards AddBusinessMinutes against profiles with
	// zero-width daily windows.
	maxAddIterations = 10000
	// maxElapsedDays caps the per-day overlap walk.
	maxElapsedDays = 365
)

// WithinBusinessHours reports whether the instant falls inside the
// profile's working window.
func WithinBusinessHours(t time.Time, profile *domain.BusinessHoursProfile) bool {
	if alwaysOpen(profile) {
		return true
	}
	loc := profile.Location()
	local := t.In(loc)
	if !weekdayAllowed(local, profile) {
		return false
	}
	start, end := windowFor(local, profile)
	return !local.Before(start) && local.Before(end)
}

// NextBusinessStart returns the earliest instant at or after t when the
// SLA clock runs. An in-window instant is returned unchanged; an
// instant before today's window snaps to the window start; otherwise
// the scan advances day by day to the next qualifying weekday.
func NextBusinessStart(t time.Time, profile *domain.BusinessHoursProfile) time.Time {
	if alwaysOpen(profile) {
		return t
	}
	loc := profile.Location()
	local := t.In(loc)

	for i := 0; i <= maxStartSearchDays; i++ {
		day := local.AddDate(0, 0, i)
		if !weekdayAllowed(day, profile) {
			continue
		}
		start, end := windowFor(day, profile)
		if i == 0 {
			if !local.Before(start) && local.Before(end) {
				return t
			}
			if local.Before(start) {
				return start
			}
			continue
		}
		return start
	}
	return t
}

// AddBusinessMinutes advances from start by the given number of
// business minutes, consuming each day's window width and rolling to
// the next business day when a day's capacity is exhausted.
func AddBusinessMinutes(start time.Time, minutes int, profile *domain.BusinessHoursProfile) time.Time {
	if minutes <= 0 {
		return start
	}
	if alwaysOpen(profile) {
		return start.Add(time.Duration(minutes) * time.Minute)
	}

	loc := profile.Location()
	remaining := time.Duration(minutes) * time.Minute
	cursor := NextBusinessStart(start, profile).In(loc)

	for i := 0; i < maxAddIterations; i++ {
		_, dayEnd := windowFor(cursor, profile)
		capacity := dayEnd.Sub(cursor)
		if capacity >= remaining {
			return cursor.Add(remaining)
		}
		if capacity > 0 {
			remaining -= capacity
		}
		nextDay := midnight(cursor.AddDate(0, 0, 1))
		advanced := NextBusinessStart(nextDay, profile).In(loc)
		if !advanced.After(cursor) {
			break
		}
		cursor = advanced
	}
	return start.Add(time.Duration(minutes) * time.Minute)
}

// ElapsedBusinessMinutes sums, per calendar day between start and end,
// the overlap between the day's business window and the actual range.
func ElapsedBusinessMinutes(start, end time.Time, profile *domain.BusinessHoursProfile) int {
	if !end.After(start) {
		return 0
	}
	if alwaysOpen(profile) {
		return int(end.Sub(start).Minutes())
	}

	loc := profile.Location()
	localStart := start.In(loc)
	localEnd := end.In(loc)

	total := time.Duration(0)
	day := midnight(localStart)
	for i := 0; i < maxElapsedDays && !day.After(localEnd); i++ {
		if weekdayAllowed(day, profile) {
			winStart, winEnd := windowFor(day, profile)
			lo := maxTime(winStart, localStart)
			hi := minTime(winEnd, localEnd)
			if hi.After(lo) {
				total += hi.Sub(lo)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return int(total.Minutes())
}

// alwaysOpen reports whether the profile degrades to calendar time:
// nil, 24x7, empty weekday set, or a non-positive daily window.
func alwaysOpen(profile *domain.BusinessHoursProfile) bool {
	if profile == nil || profile.Is24x7 || len(profile.Weekdays) == 0 {
		return true
	}
	startMin, okStart := parseClock(profile.StartTime)
	endMin, okEnd := parseClock(profile.EndTime)
	if !okStart || !okEnd || endMin <= startMin {
		return true
	}
	return false
}

func weekdayAllowed(t time.Time, profile *domain.BusinessHoursProfile) bool {
	iso := int(t.Weekday())
	if iso == 0 {
		iso = 7
	}
	for _, day := range profile.Weekdays {
		if day == iso {
			return true
		}
	}
	return false
}

// windowFor returns the business window on t's calendar day.
func windowFor(t time.Time, profile *domain.BusinessHoursProfile) (time.Time, time.Time) {
	startMin, _ := parseClock(profile.StartTime)
	endMin, _ := parseClock(profile.EndTime)
	day := midnight(t)
	return day.Add(time.Duration(startMin) * time.Minute), day.Add(time.Duration(endMin) * time.Minute)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(raw string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
