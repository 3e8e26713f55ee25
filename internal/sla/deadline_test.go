package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func businessProfile() *domain.BusinessHoursProfile {
	return &domain.BusinessHoursProfile{
		Timezone:  "UTC",
		Weekdays:  []int{1, 2, 3, 4, 5},
		StartTime: "09:00",
		EndTime:   "17:00",
	}
}

func TestInitialDeadlinesChainResolveOffResponse(t *testing.T) {
	def := &domain.SLADefinition{
		ResponseTargetMinutes: 240,
		ResolveTargetMinutes:  480,
	}
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) // Monday

	got := InitialDeadlines(def, businessProfile(), created)

	assert.Equal(t, time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC), got.ResponseDueAt)
	// Provisional resolve deadline chains off the response deadline,
	// not creation time: 480 business minutes past Monday 13:00.
	assert.Equal(t, time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC), got.ResolveDueAt)
}

func TestInitialDeadlinesFridayRollover(t *testing.T) {
	def := &domain.SLADefinition{
		ResponseTargetMinutes: 120,
		ResolveTargetMinutes:  480,
	}
	created := time.Date(2024, 6, 7, 16, 30, 0, 0, time.UTC) // Friday

	got := InitialDeadlines(def, businessProfile(), created)

	assert.Equal(t, time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC), got.ResponseDueAt)
}

func TestResolveDeadlinePrefersAfterResponseOverride(t *testing.T) {
	override := 60
	def := &domain.SLADefinition{
		ResponseTargetMinutes:       240,
		ResolveTargetMinutes:        480,
		ResolveAfterResponseMinutes: &override,
	}
	responded := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	got := ResolveDeadline(def, businessProfile(), responded)

	assert.Equal(t, responded.Add(time.Hour), got)
}

func TestResolveDeadlineAnchorsAtFirstResponse(t *testing.T) {
	def := &domain.SLADefinition{
		ResponseTargetMinutes: 240,
		ResolveTargetMinutes:  120,
	}
	responded := time.Date(2024, 6, 3, 16, 0, 0, 0, time.UTC)

	got := ResolveDeadline(def, businessProfile(), responded)

	// One hour left Monday, one hour into Tuesday.
	assert.Equal(t, time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC), got)
}
