package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/scoring"
)

// ErrNotInPool is returned when a score is requested for a ticket that
// is not in a scorable pool state.
var ErrNotInPool = errors.New("ticket not in a scorable pool state")

// PoolService maintains priority scores for the shared ticket pool.
type PoolService struct {
	scopes     ScopeProvider
	scorer     *scoring.Scorer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.PoolConfig
	now        func() time.Time
}

// PoolDependencies bundles collaborators for the pool service.
type PoolDependencies struct {
	Scopes     ScopeProvider
	Scorer     *scoring.Scorer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.PoolConfig
	// Now overrides the clock, nil means time.Now.
	Now func() time.Time
}

// NewPoolService constructs the service.
func NewPoolService(deps PoolDependencies) *PoolService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &PoolService{
		scopes:     deps.Scopes,
		scorer:     deps.Scorer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        now,
	}
}

// ScoreOutcome reports a single scoring decision.
type ScoreOutcome struct {
	TicketID int64    `json:"ticket_id"`
	Score    int      `json:"score"`
	Method   string   `json:"method"`
	Factors  []string `json:"factors,omitempty"`
}

// BatchOutcome summarizes a recalculation pass.
type BatchOutcome struct {
	Selected int `json:"selected"`
	Scored   int `json:"scored"`
	Failed   int `json:"failed"`
}

// ScoreOnEntry scores a ticket that just entered the pool. A short
// settle delay lets the enclosing transaction's writes land before the
// ticket is read back.
func (p *PoolService) ScoreOnEntry(ctx context.Context, tenantCode string, ticketID int64, useAI bool) (*ScoreOutcome, error) {
	if err := sleepCtx(ctx, p.cfg.EntrySettleDelay()); err != nil {
		return nil, err
	}
	return p.ScoreTicket(ctx, tenantCode, ticketID, useAI)
}

// ScoreTicket computes and persists the pool score for one ticket.
// useAI false keeps the call on the heuristic path.
func (p *PoolService) ScoreTicket(ctx context.Context, tenantCode string, ticketID int64, useAI bool) (*ScoreOutcome, error) {
	scope, err := p.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	ticket, err := scope.Stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !scorable(ticket) {
		return nil, ErrNotInPool
	}
	return p.scoreAndStore(ctx, scope, ticket, useAI)
}

// RecalculateScores refreshes stale or missing pool scores for one
// tenant, bounded by the configured batch size. Items are spaced out
// to keep backend pressure flat.
func (p *PoolService) RecalculateScores(ctx context.Context, tenantCode string, useAI bool) (*BatchOutcome, error) {
	scope, err := p.scopes.Scope(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	staleBefore := p.now().Add(-p.cfg.Staleness())
	tickets, err := scope.Stores.Tickets.SelectPoolBatch(ctx, staleBefore, p.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	outcome := &BatchOutcome{Selected: len(tickets)}
	for i := range tickets {
		if i > 0 {
			if err := sleepCtx(ctx, p.cfg.InterItemDelay()); err != nil {
				return outcome, err
			}
		}
		if _, err := p.scoreAndStore(ctx, scope, &tickets[i], useAI); err != nil {
			p.logger.Warn("pool score update failed",
				zap.String("tenant", tenantCode),
				zap.Int64("ticket_id", tickets[i].ID),
				zap.Error(err),
			)
			outcome.Failed++
			continue
		}
		outcome.Scored++
	}
	return outcome, nil
}

func (p *PoolService) scoreAndStore(ctx context.Context, scope *Scope, ticket *domain.Ticket, useAI bool) (*ScoreOutcome, error) {
	var def *domain.SLADefinition
	var profile *domain.BusinessHoursProfile
	if ticket.SLADefinitionID != nil {
		loaded, err := scope.Stores.SLAs.GetDefinition(ctx, *ticket.SLADefinitionID)
		if err != nil {
			p.logger.Warn("sla context unavailable for scoring",
				zap.String("tenant", scope.Tenant.Code),
				zap.Int64("ticket_id", ticket.ID),
				zap.Error(err),
			)
		} else {
			def = loaded
			profile, _ = scope.Stores.SLAs.ProfileForDefinition(ctx, def)
		}
	}

	now := p.now()
	result := p.scorer.Score(ctx, now, ticket, def, profile, useAI)
	if err := scope.Stores.Tickets.UpdatePoolScore(ctx, ticket.ID, result.Score, now); err != nil {
		return nil, err
	}

	p.publish(ctx, events.Event{
		Type:     events.EventPoolScored,
		Tenant:   scope.Tenant.Code,
		TicketID: ticket.ID,
		Payload: events.PoolScoredPayload{
			Score:   result.Score,
			Method:  result.Method,
			Factors: result.Factors,
		},
	})
	return &ScoreOutcome{
		TicketID: ticket.ID,
		Score:    result.Score,
		Method:   result.Method,
		Factors:  result.Factors,
	}, nil
}

func scorable(ticket *domain.Ticket) bool {
	if ticket.Status.IsTerminal() {
		return false
	}
	return ticket.PoolStatus != nil && ticket.PoolStatus.Scorable()
}

func (p *PoolService) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	_ = p.dispatcher.Publish(ctx, event)
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
