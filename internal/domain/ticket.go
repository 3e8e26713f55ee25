package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// IsTerminal reports whether a ticket has left the active workflow.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Ticket is the aggregate for support requests as seen by the SLA engine.
// CRUD ownership of most fields lives elsewhere; this subsystem reads the
// descriptive fields and writes only the SLA, notification sentinel and
// pool score columns.
type Ticket struct {
	ID            int64
	ExternalKey   string
	Subject       string
	Description   string
	RequesterID   *int64
	RequesterName string
	CompanyID     *int64
	CompanyName   string
	Category      string
	CMDBItemID    *int64
	Status        TicketStatus
	Priority      TicketPriority
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// SLA columns. ResponseDueAt is written once at apply time.
	// ResolveDueAt is provisional until first response, then recomputed
	// exactly once anchored at FirstRespondedAt.
	SLADefinitionID  *int64
	SLAAppliedAt     *time.Time
	ResponseDueAt    *time.Time
	ResolveDueAt     *time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time

	// Write-once notification sentinels. A non-nil value permanently
	// suppresses re-firing that notification.
	NotifiedResponseNearBreachAt *time.Time
	NotifiedResponseBreachedAt   *time.Time
	NotifiedResponsePastBreachAt *time.Time
	NotifiedResolveNearBreachAt  *time.Time
	NotifiedResolveBreachedAt    *time.Time
	NotifiedResolvePastBreachAt  *time.Time

	PoolStatus         *PoolStatus
	PoolScore          *int
	PoolScoreUpdatedAt *time.Time
}

// SentinelFor returns the notification sentinel for a phase/severity pair.
func (t *Ticket) SentinelFor(phase SLAPhaseKind, severity BreachSeverity) *time.Time {
	switch {
	case phase == PhaseResponse && severity == SeverityNearBreach:
		return t.NotifiedResponseNearBreachAt
	case phase == PhaseResponse && severity == SeverityBreached:
		return t.NotifiedResponseBreachedAt
	case phase == PhaseResponse && severity == SeverityPastBreach:
		return t.NotifiedResponsePastBreachAt
	case phase == PhaseResolve && severity == SeverityNearBreach:
		return t.NotifiedResolveNearBreachAt
	case phase == PhaseResolve && severity == SeverityBreached:
		return t.NotifiedResolveBreachedAt
	case phase == PhaseResolve && severity == SeverityPastBreach:
		return t.NotifiedResolvePastBreachAt
	}
	return nil
}
