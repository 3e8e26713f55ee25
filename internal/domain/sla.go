package domain

import (
	"strconv"
	"strings"
	"time"
)

// Default breach thresholds, percent of allotted time consumed.
const (
	DefaultNearBreachPercent = 85.0
	DefaultPastBreachPercent = 120.0
)

// SLADefinition is a named contract of response/resolve targets in
// business minutes, bound to a business hours profile.
type SLADefinition struct {
	ID                          int64
	Name                        string
	ResponseTargetMinutes       int
	ResolveTargetMinutes        int
	ResolveAfterResponseMinutes *int
	NearBreachPercent           float64
	PastBreachPercent           float64
	BusinessHoursProfileID      *int64
	IsActive                    bool
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// ResolveMinutes returns the minutes budget for the resolve phase,
// preferring the after-response override when present.
func (s *SLADefinition) ResolveMinutes() int {
	if s.ResolveAfterResponseMinutes != nil && *s.ResolveAfterResponseMinutes > 0 {
		return *s.ResolveAfterResponseMinutes
	}
	return s.ResolveTargetMinutes
}

// NearBreachThreshold returns the near-breach percent, defaulted.
func (s *SLADefinition) NearBreachThreshold() float64 {
	if s.NearBreachPercent > 0 {
		return s.NearBreachPercent
	}
	return DefaultNearBreachPercent
}

// PastBreachThreshold returns the past-breach percent, defaulted.
func (s *SLADefinition) PastBreachThreshold() float64 {
	if s.PastBreachPercent > 0 {
		return s.PastBreachPercent
	}
	return DefaultPastBreachPercent
}

// BusinessHoursProfile defines when SLA clocks run.
type BusinessHoursProfile struct {
	ID       int64
	Name     string
	Timezone string
	// Weekdays uses ISO numbering, 1=Monday..7=Sunday.
	Weekdays  []int
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"
	Is24x7    bool
}

// ParseWeekdays normalizes a stored weekday list such as "1,2,3,4,5".
// An empty or unparsable list means every day, decided here rather than
// in the calendar math.
func ParseWeekdays(raw string) []int {
	parts := strings.Split(raw, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 1 || day > 7 {
			continue
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return []int{1, 2, 3, 4, 5, 6, 7}
	}
	return days
}

// Location resolves the profile timezone, falling back to UTC.
func (p *BusinessHoursProfile) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
