package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAApplied            EventType = "sla_applied"
	EventFirstResponseRecorded EventType = "first_response_recorded"
	EventSLANotificationFired  EventType = "sla_notification_fired"
	EventPoolScored            EventType = "pool_scored"
)

// Event represents a domain event emitted by services and the worker.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Tenant    string      `json:"tenant"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLAAppliedPayload payload.
type SLAAppliedPayload struct {
	SLADefinitionID int64      `json:"sla_definition_id"`
	Source          sla.Source `json:"source"`
	ResponseDueAt   time.Time  `json:"response_due_at"`
	ResolveDueAt    time.Time  `json:"resolve_due_at"`
}

// FirstResponseRecordedPayload payload.
type FirstResponseRecordedPayload struct {
	RespondedAt  time.Time `json:"responded_at"`
	ResolveDueAt time.Time `json:"resolve_due_at"`
}

// SLANotificationFiredPayload payload.
type SLANotificationFiredPayload struct {
	NotificationID string                `json:"notification_id"`
	Phase          domain.SLAPhaseKind   `json:"phase"`
	Severity       domain.BreachSeverity `json:"severity"`
	Message        string                `json:"message"`
	PercentElapsed float64               `json:"percent_elapsed"`
}

// PoolScoredPayload payload.
type PoolScoredPayload struct {
	Score   int      `json:"score"`
	Method  string   `json:"method"`
	Factors []string `json:"factors,omitempty"`
}
