package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestResponseStateNoSLA(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	got := ResponseState(now, nil, nil, 85, now.Add(-time.Hour), nil)

	assert.Equal(t, StateNoSLA, got.State)
}

func TestResponseStateMetAtExactBoundary(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	due := created.Add(4 * time.Hour)

	// Responding exactly at the deadline counts as met, not breached.
	got := ResponseState(due.Add(time.Hour), &due, &due, 85, created, nil)

	assert.Equal(t, StateMet, got.State)
}

func TestResponseStateBreachedWhenRespondedLate(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	due := created.Add(4 * time.Hour)
	responded := due.Add(time.Minute)

	got := ResponseState(responded, &due, &responded, 85, created, nil)

	assert.Equal(t, StateBreached, got.State)
}

func TestResponseStateNearBreachBoundaryInclusive(t *testing.T) {
	created := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	due := created.Add(100 * time.Minute)

	at84 := ResponseState(created.Add(84*time.Minute), &due, nil, 85, created, nil)
	at85 := ResponseState(created.Add(85*time.Minute), &due, nil, 85, created, nil)

	assert.Equal(t, StateOnTrack, at84.State)
	assert.Equal(t, StateNearBreach, at85.State)
	assert.InDelta(t, 85.0, at85.PercentElapsed, 0.01)
}

func TestResponseStateBreachedPercentCapped(t *testing.T) {
	created := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	due := created.Add(10 * time.Minute)
	now := created.Add(30 * 24 * time.Hour)

	got := ResponseState(now, &due, nil, 85, created, nil)

	assert.Equal(t, StateBreached, got.State)
	assert.Equal(t, percentElapsedCap, got.PercentElapsed)
}

func TestResponseStateUsesBusinessMinutesWithProfile(t *testing.T) {
	profile := &domain.BusinessHoursProfile{
		Timezone:  "UTC",
		Weekdays:  []int{1, 2, 3, 4, 5},
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	// Friday 16:00 with a 2h target due Monday 10:00. Saturday noon is
	// halfway through the wall clock but only 60 business minutes in.
	created := time.Date(2024, 6, 7, 16, 0, 0, 0, time.UTC)
	due := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	saturdayNoon := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)

	got := ResponseState(saturdayNoon, &due, nil, 85, created, profile)

	assert.Equal(t, StateOnTrack, got.State)
	assert.InDelta(t, 50.0, got.PercentElapsed, 0.01)
}

func TestResolveStatePendingWithoutFirstResponse(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	due := now.Add(-48 * time.Hour)

	// Pending even with a long-past due date: the resolve clock never
	// starts before first response.
	got := ResolveState(now, &due, nil, nil, 85, nil)

	assert.Equal(t, StatePending, got.State)
}

func TestResolveStateMeasuresFromFirstResponse(t *testing.T) {
	responded := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	due := responded.Add(100 * time.Minute)
	now := responded.Add(50 * time.Minute)

	got := ResolveState(now, &due, &responded, nil, 85, nil)

	assert.Equal(t, StateOnTrack, got.State)
	assert.InDelta(t, 50.0, got.PercentElapsed, 0.01)
}

func TestResolveStateMetWhenResolvedOnTime(t *testing.T) {
	responded := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	due := responded.Add(2 * time.Hour)
	resolved := due.Add(-time.Minute)

	got := ResolveState(resolved.Add(time.Hour), &due, &responded, &resolved, 85, nil)

	assert.Equal(t, StateMet, got.State)
}

func TestComputeStatusPhases(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	base := domain.Ticket{CreatedAt: now.Add(-time.Hour)}

	awaiting := base
	assert.Equal(t, PhaseAwaitingResponse, ComputeStatus(now, &awaiting, nil, nil).Phase)

	responded := base
	responded.FirstRespondedAt = ptrTime(now.Add(-30 * time.Minute))
	assert.Equal(t, PhaseInProgress, ComputeStatus(now, &responded, nil, nil).Phase)

	resolved := responded
	resolved.ResolvedAt = ptrTime(now.Add(-10 * time.Minute))
	assert.Equal(t, PhaseResolved, ComputeStatus(now, &resolved, nil, nil).Phase)
}

func TestComputeStatusOutsideBusinessHoursFlag(t *testing.T) {
	profile := &domain.BusinessHoursProfile{
		Timezone:  "UTC",
		Weekdays:  []int{1, 2, 3, 4, 5},
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	ticket := domain.Ticket{CreatedAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}

	inside := ComputeStatus(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), &ticket, nil, profile)
	outside := ComputeStatus(time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC), &ticket, nil, profile)

	assert.False(t, inside.OutsideBusinessHours)
	assert.True(t, outside.OutsideBusinessHours)
}
