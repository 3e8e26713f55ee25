package sla

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/domain"
)

// Deadlines carries the computed due instants for a ticket.
type Deadlines struct {
	ResponseDueAt time.Time
	ResolveDueAt  time.Time
}

// InitialDeadlines computes the response deadline from creation time
// and a provisional resolve deadline chained off the response deadline.
// The provisional value stands until the first response recomputes it.
func InitialDeadlines(def *domain.SLADefinition, profile *domain.BusinessHoursProfile, createdAt time.Time) Deadlines {
	responseDue := calendar.AddBusinessMinutes(createdAt, def.ResponseTargetMinutes, profile)
	resolveDue := calendar.AddBusinessMinutes(responseDue, def.ResolveMinutes(), profile)
	return Deadlines{ResponseDueAt: responseDue, ResolveDueAt: resolveDue}
}

// ResolveDeadline computes the authoritative resolve deadline anchored
// at the actual first response. Called exactly once per ticket; the
// resolve clock never starts before a response exists.
func ResolveDeadline(def *domain.SLADefinition, profile *domain.BusinessHoursProfile, firstRespondedAt time.Time) time.Time {
	return calendar.AddBusinessMinutes(firstRespondedAt, def.ResolveMinutes(), profile)
}
