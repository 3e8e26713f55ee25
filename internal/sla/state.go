// Package sla holds the SLA computation core: deadline arithmetic,
// phase state evaluation and the applicable-SLA resolution cascade.
package sla

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/domain"
)

// State is the evaluated condition of one SLA phase clock.
type State string

const (
	StateNoSLA      State = "no_sla"
	StatePending    State = "pending"
	StateOnTrack    State = "on_track"
	StateNearBreach State = "near_breach"
	StateBreached   State = "breached"
	StateMet        State = "met"
)

// Terminal reports whether the phase clock has stopped.
func (s State) Terminal() bool {
	return s == StateMet || s == StateBreached
}

// percentElapsedCap bounds the reported percentage once a deadline has
// long passed.
const percentElapsedCap = 999.0

// PhaseState is the evaluation result for a single phase.
type PhaseState struct {
	State          State      `json:"state"`
	PercentElapsed float64    `json:"percent_elapsed"`
	DueAt          *time.Time `json:"due_at,omitempty"`
}

// Phase labels the ticket's overall position in the SLA lifecycle.
type Phase string

const (
	PhaseAwaitingResponse Phase = "awaiting_response"
	PhaseInProgress       Phase = "in_progress"
	PhaseResolved         Phase = "resolved"
)

// Status composes both phase evaluations for a ticket.
type Status struct {
	Phase                Phase      `json:"sla_phase"`
	Response             PhaseState `json:"response"`
	Resolve              PhaseState `json:"resolve"`
	OutsideBusinessHours bool       `json:"outside_business_hours"`
}

// ResponseState evaluates the response-phase clock at the given
// instant. A nil dueAt means the ticket carries no SLA; a recorded
// response terminates the clock as met (inclusive of the boundary) or
// breached. Elapsed time runs over [createdAt, dueAt] in business
// minutes when a profile is supplied, wall-clock otherwise.
func ResponseState(now time.Time, dueAt, respondedAt *time.Time, nearBreachPercent float64, createdAt time.Time, profile *domain.BusinessHoursProfile) PhaseState {
	if dueAt == nil {
		return PhaseState{State: StateNoSLA}
	}
	if respondedAt != nil {
		state := StateMet
		if respondedAt.After(*dueAt) {
			state = StateBreached
		}
		return PhaseState{
			State:          state,
			PercentElapsed: percentElapsed(createdAt, *dueAt, *respondedAt, profile),
			DueAt:          dueAt,
		}
	}

	percent := percentElapsed(createdAt, *dueAt, now, profile)
	state := StateOnTrack
	switch {
	case now.After(*dueAt):
		state = StateBreached
	case percent >= nearBreachPercent:
		state = StateNearBreach
	}
	return PhaseState{State: state, PercentElapsed: percent, DueAt: dueAt}
}

// ResolveState mirrors ResponseState for the resolve phase but is
// gated: while no first response exists the clock has not started and
// the state is pending regardless of any due date. Elapsed time is
// measured from the first response, never from creation.
func ResolveState(now time.Time, dueAt, firstRespondedAt, resolvedAt *time.Time, nearBreachPercent float64, profile *domain.BusinessHoursProfile) PhaseState {
	if firstRespondedAt == nil {
		return PhaseState{State: StatePending, DueAt: dueAt}
	}
	if dueAt == nil {
		return PhaseState{State: StateNoSLA}
	}
	if resolvedAt != nil {
		state := StateMet
		if resolvedAt.After(*dueAt) {
			state = StateBreached
		}
		return PhaseState{
			State:          state,
			PercentElapsed: percentElapsed(*firstRespondedAt, *dueAt, *resolvedAt, profile),
			DueAt:          dueAt,
		}
	}

	percent := percentElapsed(*firstRespondedAt, *dueAt, now, profile)
	state := StateOnTrack
	switch {
	case now.After(*dueAt):
		state = StateBreached
	case percent >= nearBreachPercent:
		state = StateNearBreach
	}
	return PhaseState{State: state, PercentElapsed: percent, DueAt: dueAt}
}

// ComputeStatus evaluates both phases of a ticket against its SLA.
func ComputeStatus(now time.Time, ticket *domain.Ticket, def *domain.SLADefinition, profile *domain.BusinessHoursProfile) Status {
	near := domain.DefaultNearBreachPercent
	if def != nil {
		near = def.NearBreachThreshold()
	}

	phase := PhaseAwaitingResponse
	switch {
	case ticket.ResolvedAt != nil:
		phase = PhaseResolved
	case ticket.FirstRespondedAt != nil:
		phase = PhaseInProgress
	}

	return Status{
		Phase:                phase,
		Response:             ResponseState(now, ticket.ResponseDueAt, ticket.FirstRespondedAt, near, ticket.CreatedAt, profile),
		Resolve:              ResolveState(now, ticket.ResolveDueAt, ticket.FirstRespondedAt, ticket.ResolvedAt, near, profile),
		OutsideBusinessHours: !calendar.WithinBusinessHours(now, profile),
	}
}

// percentElapsed computes consumed time over [start, due] as of the
// given instant, in business minutes when a profile is present.
func percentElapsed(start, due, at time.Time, profile *domain.BusinessHoursProfile) float64 {
	var total, elapsed float64
	if profile != nil {
		total = float64(calendar.ElapsedBusinessMinutes(start, due, profile))
		elapsed = float64(calendar.ElapsedBusinessMinutes(start, at, profile))
	} else {
		total = due.Sub(start).Minutes()
		elapsed = at.Sub(start).Minutes()
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if total <= 0 {
		if elapsed > 0 {
			return percentElapsedCap
		}
		return 0
	}
	percent := elapsed / total * 100
	if percent > percentElapsedCap {
		percent = percentElapsedCap
	}
	return percent
}
