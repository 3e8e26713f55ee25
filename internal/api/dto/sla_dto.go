// Package dto defines the wire shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// ApplySLARequest optionally pins a definition, bypassing all cascade
// sources below the ticket override.
type ApplySLARequest struct {
	OverrideSLADefinitionID *int64 `json:"override_sla_definition_id,omitempty"`
}

// BackfillRequest bounds one backfill pass.
type BackfillRequest struct {
	Limit int `json:"limit"`
}

// FirstResponseRequest records a first response; a missing timestamp
// means now.
type FirstResponseRequest struct {
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// NotificationResponse is a fired breach notification.
type NotificationResponse struct {
	ID        string                `json:"id"`
	Phase     domain.SLAPhaseKind   `json:"phase"`
	Severity  domain.BreachSeverity `json:"severity"`
	Message   string                `json:"message"`
	CreatedAt time.Time             `json:"created_at"`
}

// TicketSLAResponse is the evaluated SLA position of one ticket.
type TicketSLAResponse struct {
	TicketID      int64                  `json:"ticket_id"`
	SLAName       string                 `json:"sla_name,omitempty"`
	Status        sla.Status             `json:"status"`
	Facts         sla.Facts              `json:"facts"`
	Notifications []NotificationResponse `json:"notifications"`
}
