package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Facts is a compact, serializable summary of a ticket's SLA position,
// consumed by status endpoints and by AI context building.
type Facts struct {
	SLAName              string   `json:"sla_name,omitempty"`
	Phase                Phase    `json:"sla_phase"`
	ResponseState        State    `json:"response_state"`
	ResponsePercent      float64  `json:"response_percent_elapsed"`
	ResponseDueIn        string   `json:"response_due_in,omitempty"`
	ResolveState         State    `json:"resolve_state"`
	ResolvePercent       float64  `json:"resolve_percent_elapsed"`
	ResolveDueIn         string   `json:"resolve_due_in,omitempty"`
	OutsideBusinessHours bool     `json:"outside_business_hours"`
	MinutesToResponseDue *float64 `json:"minutes_to_response_due,omitempty"`
}

// BuildFacts evaluates the ticket and flattens the result.
func BuildFacts(now time.Time, ticket *domain.Ticket, def *domain.SLADefinition, profile *domain.BusinessHoursProfile) Facts {
	status := ComputeStatus(now, ticket, def, profile)
	facts := Facts{
		Phase:                status.Phase,
		ResponseState:        status.Response.State,
		ResponsePercent:      status.Response.PercentElapsed,
		ResolveState:         status.Resolve.State,
		ResolvePercent:       status.Resolve.PercentElapsed,
		OutsideBusinessHours: status.OutsideBusinessHours,
	}
	if def != nil {
		facts.SLAName = def.Name
	}
	if ticket.ResponseDueAt != nil {
		minutes := ticket.ResponseDueAt.Sub(now).Minutes()
		facts.MinutesToResponseDue = &minutes
		facts.ResponseDueIn = humanizeUntil(now, *ticket.ResponseDueAt)
	}
	if ticket.ResolveDueAt != nil {
		facts.ResolveDueIn = humanizeUntil(now, *ticket.ResolveDueAt)
	}
	return facts
}

func humanizeUntil(now, due time.Time) string {
	delta := due.Sub(now)
	overdue := delta < 0
	if overdue {
		delta = -delta
	}
	var text string
	switch {
	case delta >= 24*time.Hour:
		text = fmt.Sprintf("%.1fd", delta.Hours()/24)
	case delta >= time.Hour:
		text = fmt.Sprintf("%.1fh", delta.Hours())
	default:
		text = fmt.Sprintf("%.0fm", delta.Minutes())
	}
	if overdue {
		return text + " overdue"
	}
	return text + " remaining"
}
