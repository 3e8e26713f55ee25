package domain

import "time"

// SLAPhaseKind names the two SLA clocks on a ticket.
type SLAPhaseKind string

const (
	PhaseResponse SLAPhaseKind = "response"
	PhaseResolve  SLAPhaseKind = "resolve"
)

// BreachSeverity escalates as more of the allotted time is consumed.
type BreachSeverity string

const (
	SeverityNearBreach BreachSeverity = "near_breach"
	SeverityBreached   BreachSeverity = "breached"
	SeverityPastBreach BreachSeverity = "past_breach"
)

// NotificationType identifies the emitting subsystem.
type NotificationType string

const (
	NotificationTypeSLABreach NotificationType = "sla_breach"
)

// Notification is a persisted alert row. Insertion is paired with
// stamping the matching ticket sentinel, which is the sole dedupe
// mechanism across sweeps.
type Notification struct {
	ID        string
	TicketID  int64
	Type      NotificationType
	Phase     SLAPhaseKind
	Severity  BreachSeverity
	Message   string
	Payload   map[string]any
	CreatedAt time.Time
}
