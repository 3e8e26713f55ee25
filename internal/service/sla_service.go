package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// ErrNoApplicableSLA is returned when the resolution cascade finds no
// usable definition; the ticket stays unmanaged.
var ErrNoApplicableSLA = errors.New("no applicable sla definition")

// SLAService coordinates SLA application, the first-response clock
// transition and status evaluation across tenants.
type SLAService struct {
	scopes     ScopeProvider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	Scopes     ScopeProvider
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Now overrides the clock, nil means time.Now.
	Now func() time.Time
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SLAService{
		scopes:     deps.Scopes,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// ApplyResult reports the outcome of an SLA application attempt.
type ApplyResult struct {
	Applied         bool       `json:"applied"`
	AlreadyApplied  bool       `json:"already_applied"`
	SLADefinitionID *int64     `json:"sla_definition_id,omitempty"`
	Source          sla.Source `json:"source"`
	ResponseDueAt   *time.Time `json:"response_due_at,omitempty"`
	ResolveDueAt    *time.Time `json:"resolve_due_at,omitempty"`
}

// BackfillResult summarizes a backfill pass.
type BackfillResult struct {
	Examined   int `json:"examined"`
	Applied    int `json:"applied"`
	Unresolved int `json:"unresolved"`
}

// StatusView is the evaluated SLA position of one ticket.
type StatusView struct {
	Ticket        *domain.Ticket        `json:"-"`
	TicketID      int64                 `json:"ticket_id"`
	SLA           *domain.SLADefinition `json:"-"`
	Status        sla.Status            `json:"status"`
	Facts         sla.Facts             `json:"facts"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

// ApplySLA resolves and stamps the governing SLA for one ticket. The
// operation is idempotent: a ticket that already carries a definition
// is reported as such and left untouched.
func (s *SLAService) ApplySLA(ctx context.Context, tenantCode string, ticketID int64, overrideSLAID *int64) (*ApplyResult, error) {
	scope, err := s.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	ticket, err := scope.Stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.applyToTicket(ctx, scope, ticket, overrideSLAID)
}

// BackfillSLAs applies SLAs to tickets that entered the system before
// the engine was enabled, or whose application previously failed.
func (s *SLAService) BackfillSLAs(ctx context.Context, tenantCode string, limit int) (*BackfillResult, error) {
	scope, err := s.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	tickets, err := scope.Stores.Tickets.ListMissingSLA(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{Examined: len(tickets)}
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		applied, err := s.applyToTicket(ctx, scope, &tickets[i], nil)
		if err != nil {
			s.logger.Warn("backfill: apply failed",
				zap.String("tenant", tenantCode),
				zap.Int64("ticket_id", tickets[i].ID),
				zap.Error(err),
			)
			result.Unresolved++
			continue
		}
		if applied.Applied {
			result.Applied++
		} else if !applied.AlreadyApplied {
			result.Unresolved++
		}
	}
	return result, nil
}

// MarkFirstResponse records the first agent response and recomputes
// the resolve deadline anchored at it. Later calls are no-ops.
func (s *SLAService) MarkFirstResponse(ctx context.Context, tenantCode string, ticketID int64, respondedAt time.Time) (bool, error) {
	scope, err := s.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return false, err
	}
	defer scope.Close()

	ticket, err := scope.Stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if ticket.FirstRespondedAt != nil {
		return false, nil
	}

	resolveDue := respondedAt
	if ticket.SLADefinitionID != nil {
		def, profile, err := s.slaContext(ctx, scope, ticket)
		if err != nil {
			return false, err
		}
		if def != nil {
			resolveDue = sla.ResolveDeadline(def, profile, respondedAt)
		}
	}

	recorded, err := scope.Stores.Tickets.MarkFirstResponse(ctx, ticketID, respondedAt, resolveDue)
	if err != nil || !recorded {
		return recorded, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventFirstResponseRecorded,
		Tenant:   tenantCode,
		TicketID: ticketID,
		Payload: events.FirstResponseRecordedPayload{
			RespondedAt:  respondedAt,
			ResolveDueAt: resolveDue,
		},
	})
	return true, nil
}

// TicketStatus evaluates the ticket's SLA position at the current
// instant, including its notification history.
func (s *SLAService) TicketStatus(ctx context.Context, tenantCode string, ticketID int64) (*StatusView, error) {
	scope, err := s.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	ticket, err := scope.Stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	def, profile, err := s.slaContext(ctx, scope, ticket)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &StatusView{
		Ticket:   ticket,
		TicketID: ticket.ID,
		SLA:      def,
		Status:   sla.ComputeStatus(now, ticket, def, profile),
		Facts:    sla.BuildFacts(now, ticket, def, profile),
	}
	notifications, err := scope.Stores.Notifications.ListByTicket(ctx, ticket.ID, 20)
	if err != nil {
		s.logger.Warn("listing ticket notifications failed",
			zap.String("tenant", tenantCode),
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err),
		)
	} else {
		view.Notifications = notifications
	}
	return view, nil
}

func (s *SLAService) applyToTicket(ctx context.Context, scope *Scope, ticket *domain.Ticket, overrideSLAID *int64) (*ApplyResult, error) {
	if ticket.SLADefinitionID != nil {
		return &ApplyResult{
			AlreadyApplied:  true,
			SLADefinitionID: ticket.SLADefinitionID,
			Source:          sla.SourceTicket,
			ResponseDueAt:   ticket.ResponseDueAt,
			ResolveDueAt:    ticket.ResolveDueAt,
		}, nil
	}

	catalog := sla.NewCatalog(scope.Stores.SLAs, s.logger)
	resolution := catalog.Resolve(ctx, sla.TicketContext{
		TicketID:      ticket.ID,
		OverrideSLAID: overrideSLAID,
		RequesterID:   ticket.RequesterID,
		CompanyID:     ticket.CompanyID,
		Category:      ticket.Category,
		CMDBItemID:    ticket.CMDBItemID,
	})
	if resolution.SLAID == nil {
		return &ApplyResult{Source: resolution.Source}, ErrNoApplicableSLA
	}

	def, err := scope.Stores.SLAs.GetDefinition(ctx, *resolution.SLAID)
	if err != nil {
		return nil, err
	}
	profile, err := scope.Stores.SLAs.ProfileForDefinition(ctx, def)
	if err != nil {
		return nil, err
	}

	deadlines := sla.InitialDeadlines(def, profile, ticket.CreatedAt)
	appliedAt := s.now()
	applied, err := scope.Stores.Tickets.ApplySLA(ctx, ticket.ID, def.ID, appliedAt, deadlines.ResponseDueAt, deadlines.ResolveDueAt)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to a concurrent apply.
		return &ApplyResult{AlreadyApplied: true, Source: resolution.Source}, nil
	}

	s.logger.Info("sla applied",
		zap.String("tenant", scope.Tenant.Code),
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("sla_id", def.ID),
		zap.String("source", string(resolution.Source)),
	)
	s.publish(ctx, events.Event{
		Type:     events.EventSLAApplied,
		Tenant:   scope.Tenant.Code,
		TicketID: ticket.ID,
		Payload: events.SLAAppliedPayload{
			SLADefinitionID: def.ID,
			Source:          resolution.Source,
			ResponseDueAt:   deadlines.ResponseDueAt,
			ResolveDueAt:    deadlines.ResolveDueAt,
		},
	})
	return &ApplyResult{
		Applied:         true,
		SLADefinitionID: &def.ID,
		Source:          resolution.Source,
		ResponseDueAt:   &deadlines.ResponseDueAt,
		ResolveDueAt:    &deadlines.ResolveDueAt,
	}, nil
}

// slaContext loads the ticket's definition and bound business hours
// profile. A ticket without a definition yields (nil, nil, nil).
func (s *SLAService) slaContext(ctx context.Context, scope *Scope, ticket *domain.Ticket) (*domain.SLADefinition, *domain.BusinessHoursProfile, error) {
	if ticket.SLADefinitionID == nil {
		return nil, nil, nil
	}
	def, err := scope.Stores.SLAs.GetDefinition(ctx, *ticket.SLADefinitionID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := scope.Stores.SLAs.ProfileForDefinition(ctx, def)
	if err != nil {
		return nil, nil, err
	}
	return def, profile, nil
}

func (s *SLAService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
