// Package worker runs the breach notifier: a periodic sweep over every
// active tenant that evaluates SLA clocks and fires write-once breach
// notifications.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// BreachNotifier sweeps tenants and persists breach notifications.
type BreachNotifier struct {
	tenants    repository.TenantRepository
	scopes     service.ScopeProvider
	dispatcher events.Dispatcher
	lease      *LeaderLease
	cadence    *CadenceTracker
	logger     *zap.Logger
	cfg        config.WorkerConfig
	now        func() time.Time
}

// BreachNotifierDependencies bundles collaborators for the notifier.
type BreachNotifierDependencies struct {
	Tenants    repository.TenantRepository
	Scopes     service.ScopeProvider
	Dispatcher events.Dispatcher
	// Lease is optional; without it every replica sweeps.
	Lease   *LeaderLease
	Cadence *CadenceTracker
	Logger  *zap.Logger
	Config  config.WorkerConfig
	// Now overrides the clock, nil means time.Now.
	Now func() time.Time
}

// NewBreachNotifier constructs the worker.
func NewBreachNotifier(deps BreachNotifierDependencies) *BreachNotifier {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cadence := deps.Cadence
	if cadence == nil {
		cadence = NewCadenceTracker()
	}
	return &BreachNotifier{
		tenants:    deps.Tenants,
		scopes:     deps.Scopes,
		dispatcher: deps.Dispatcher,
		lease:      deps.Lease,
		cadence:    cadence,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        now,
	}
}

// SweepStats summarizes one sweep across all tenants.
type SweepStats struct {
	TenantsChecked     int `json:"tenants_checked"`
	TenantsSkipped     int `json:"tenants_skipped"`
	TicketsEvaluated   int `json:"tickets_evaluated"`
	NotificationsFired int `json:"notifications_fired"`
	Errors             int `json:"errors"`
}

// Run starts the daemon and blocks until the context ends, then drains
// the in-flight sweep before returning.
func (w *BreachNotifier) Run(ctx context.Context) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %s", w.cfg.Tick())
	_, err := scheduler.AddFunc(spec, func() {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	w.logger.Info("breach notifier started", zap.Duration("tick", w.cfg.Tick()))
	scheduler.Start()
	<-ctx.Done()

	<-scheduler.Stop().Done()
	if w.lease != nil {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.lease.Release(releaseCtx)
	}
	w.logger.Info("breach notifier stopped")
	return nil
}

// RunOnce performs a single sweep. Tenants are processed sequentially;
// a failing tenant is counted and skipped, never aborting the sweep.
func (w *BreachNotifier) RunOnce(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{}
	if w.lease != nil && !w.lease.TryAcquire(ctx) {
		w.logger.Debug("not sweep leader, skipping tick")
		return stats, nil
	}

	tenants, err := w.tenants.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("list tenants: %w", err)
	}

	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !w.tenantDue(ctx, tenant.Code) {
			stats.TenantsSkipped++
			continue
		}

		tenantCtx, cancel := context.WithTimeout(ctx, w.cfg.TenantTimeout())
		evaluated, fired, err := w.sweepTenant(tenantCtx, tenant)
		cancel()

		stats.TenantsChecked++
		stats.TicketsEvaluated += evaluated
		stats.NotificationsFired += fired
		if err != nil {
			stats.Errors++
			w.logger.Error("tenant sweep failed",
				zap.String("tenant", tenant.Code),
				zap.Error(err),
			)
			continue
		}
		w.cadence.MarkRun(tenant.Code, w.now())
	}

	w.logger.Info("sweep complete",
		zap.Int("tenants_checked", stats.TenantsChecked),
		zap.Int("tenants_skipped", stats.TenantsSkipped),
		zap.Int("tickets_evaluated", stats.TicketsEvaluated),
		zap.Int("notifications_fired", stats.NotificationsFired),
		zap.Int("errors", stats.Errors),
	)
	return stats, nil
}

// tenantDue applies the per-tenant check interval against the tracker.
// Settings lookup trouble falls back to the default cadence.
func (w *BreachNotifier) tenantDue(ctx context.Context, code string) bool {
	settings, err := w.tenants.GetSettings(ctx, code)
	if err != nil {
		w.logger.Warn("tenant settings unavailable, using default cadence",
			zap.String("tenant", code),
			zap.Error(err),
		)
		settings = domain.TenantSettings{TenantCode: code}
	}
	interval := settings.CheckInterval(w.cfg.DefaultCheckIntervalSeconds, w.cfg.CheckIntervalFloorSeconds)
	return w.cadence.Due(code, interval, w.now())
}

func (w *BreachNotifier) sweepTenant(ctx context.Context, tenant domain.Tenant) (evaluated, fired int, err error) {
	scope, err := w.scopes.ScopeFor(ctx, tenant)
	if err != nil {
		return 0, 0, err
	}
	defer scope.Close()

	tickets, err := scope.Stores.Tickets.ListActiveWithSLA(ctx)
	if err != nil {
		return 0, 0, err
	}

	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return evaluated, fired, err
		}
		n, err := w.evaluateTicket(ctx, scope, &tickets[i])
		evaluated++
		fired += n
		if err != nil {
			w.logger.Warn("ticket evaluation failed",
				zap.String("tenant", tenant.Code),
				zap.Int64("ticket_id", tickets[i].ID),
				zap.Error(err),
			)
		}
	}
	return evaluated, fired, nil
}

// evaluateTicket fires at most one notification: the one matching the
// active phase's current severity, if its sentinel is unset. The two
// phases are mutually exclusive: the response clock is only judged
// while first response is outstanding, then only the resolve clock.
func (w *BreachNotifier) evaluateTicket(ctx context.Context, scope *service.Scope, ticket *domain.Ticket) (int, error) {
	def, err := scope.Stores.SLAs.GetDefinition(ctx, *ticket.SLADefinitionID)
	if err != nil {
		return 0, err
	}
	if !def.IsActive {
		w.logger.Debug("skipping ticket bound to inactive sla definition",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("sla_definition_id", def.ID),
		)
		return 0, nil
	}
	profile, err := scope.Stores.SLAs.ProfileForDefinition(ctx, def)
	if err != nil {
		return 0, err
	}

	status := sla.ComputeStatus(w.now(), ticket, def, profile)
	phase := domain.PhaseResponse
	state := status.Response
	if ticket.FirstRespondedAt != nil {
		phase = domain.PhaseResolve
		state = status.Resolve
	}

	severity, ok := currentSeverity(state, def.PastBreachThreshold())
	if !ok {
		return 0, nil
	}
	if ticket.SentinelFor(phase, severity) != nil {
		return 0, nil
	}
	if err := w.fire(ctx, scope, ticket, def, phase, severity, state); err != nil {
		return 0, err
	}
	return 1, nil
}

// currentSeverity maps a phase state to the single severity describing
// it now. Escalation over time fires each level exactly once because
// only the current level is ever considered.
func currentSeverity(state sla.PhaseState, pastBreachPercent float64) (domain.BreachSeverity, bool) {
	switch state.State {
	case sla.StateBreached:
		if state.PercentElapsed >= pastBreachPercent {
			return domain.SeverityPastBreach, true
		}
		return domain.SeverityBreached, true
	case sla.StateNearBreach:
		return domain.SeverityNearBreach, true
	}
	return "", false
}

// fire stamps the sentinel and, having won the stamp, persists the
// notification row and publishes the event. A lost stamp means another
// sweep got there first.
func (w *BreachNotifier) fire(ctx context.Context, scope *service.Scope, ticket *domain.Ticket, def *domain.SLADefinition, phase domain.SLAPhaseKind, severity domain.BreachSeverity, state sla.PhaseState) error {
	now := w.now()
	stamped, err := scope.Stores.Tickets.StampNotification(ctx, ticket.ID, phase, severity, now)
	if err != nil {
		return err
	}
	if !stamped {
		return nil
	}

	notification := &domain.Notification{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		Type:     domain.NotificationTypeSLABreach,
		Phase:    phase,
		Severity: severity,
		Message:  breachMessage(ticket, phase, severity, state),
		Payload: map[string]any{
			"sla_definition_id": def.ID,
			"sla_name":          def.Name,
			"phase":             phase,
			"severity":          severity,
			"percent_elapsed":   state.PercentElapsed,
			"due_at":            state.DueAt,
		},
	}
	if err := scope.Stores.Notifications.Create(ctx, notification); err != nil {
		return err
	}

	w.logger.Info("breach notification fired",
		zap.String("tenant", scope.Tenant.Code),
		zap.Int64("ticket_id", ticket.ID),
		zap.String("phase", string(phase)),
		zap.String("severity", string(severity)),
		zap.Float64("percent_elapsed", state.PercentElapsed),
	)
	if w.dispatcher != nil {
		_ = w.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSLANotificationFired,
			Tenant:    scope.Tenant.Code,
			TicketID:  ticket.ID,
			Timestamp: now,
			Payload: events.SLANotificationFiredPayload{
				NotificationID: notification.ID,
				Phase:          phase,
				Severity:       severity,
				Message:        notification.Message,
				PercentElapsed: state.PercentElapsed,
			},
		})
	}
	return nil
}

func breachMessage(ticket *domain.Ticket, phase domain.SLAPhaseKind, severity domain.BreachSeverity, state sla.PhaseState) string {
	label := map[domain.BreachSeverity]string{
		domain.SeverityNearBreach: "approaching its target",
		domain.SeverityBreached:   "breached",
		domain.SeverityPastBreach: "far past its target",
	}[severity]
	return fmt.Sprintf("Ticket %s: %s SLA %s (%.0f%% of allotted time consumed)",
		ticket.ExternalKey, phase, label, state.PercentElapsed)
}
