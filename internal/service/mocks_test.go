package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

type mockTicketStore struct {
	tickets    []*domain.Ticket
	poolScores map[int64]int
	batch      []domain.Ticket

	getErr   error
	scoreErr error
}

func (m *mockTicketStore) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, t := range m.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.New("ticket not found")
}

func (m *mockTicketStore) ListActiveWithSLA(context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.SLADefinitionID != nil && !t.Status.IsTerminal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockTicketStore) ListMissingSLA(_ context.Context, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.SLADefinitionID == nil && !t.Status.IsTerminal() {
			out = append(out, *t)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockTicketStore) ApplySLA(_ context.Context, ticketID, slaID int64, appliedAt, responseDue, resolveDue time.Time) (bool, error) {
	t, err := m.GetByID(context.Background(), ticketID)
	if err != nil {
		return false, err
	}
	if t.SLADefinitionID != nil {
		return false, nil
	}
	t.SLADefinitionID = &slaID
	t.SLAAppliedAt = &appliedAt
	t.ResponseDueAt = &responseDue
	t.ResolveDueAt = &resolveDue
	return true, nil
}

func (m *mockTicketStore) MarkFirstResponse(_ context.Context, ticketID int64, respondedAt, resolveDue time.Time) (bool, error) {
	t, err := m.GetByID(context.Background(), ticketID)
	if err != nil {
		return false, err
	}
	if t.FirstRespondedAt != nil {
		return false, nil
	}
	t.FirstRespondedAt = &respondedAt
	t.ResolveDueAt = &resolveDue
	return true, nil
}

func (m *mockTicketStore) StampNotification(context.Context, int64, domain.SLAPhaseKind, domain.BreachSeverity, time.Time) (bool, error) {
	return false, nil
}

func (m *mockTicketStore) SelectPoolBatch(context.Context, time.Time, int) ([]domain.Ticket, error) {
	return m.batch, nil
}

func (m *mockTicketStore) UpdatePoolScore(_ context.Context, ticketID int64, score int, at time.Time) error {
	if m.scoreErr != nil {
		return m.scoreErr
	}
	if m.poolScores == nil {
		m.poolScores = make(map[int64]int)
	}
	m.poolScores[ticketID] = score
	if t, err := m.GetByID(context.Background(), ticketID); err == nil {
		t.PoolScore = &score
		t.PoolScoreUpdatedAt = &at
	}
	return nil
}

type mockSLAStore struct {
	defs       map[int64]*domain.SLADefinition
	profiles   map[int64]*domain.BusinessHoursProfile
	categories map[string]*int64
	defaultID  *int64
}

func (m *mockSLAStore) GetDefinition(_ context.Context, id int64) (*domain.SLADefinition, error) {
	if def, ok := m.defs[id]; ok {
		return def, nil
	}
	return nil, errors.New("definition not found")
}

func (m *mockSLAStore) ListActiveDefinitions(context.Context) ([]domain.SLADefinition, error) {
	var out []domain.SLADefinition
	for _, def := range m.defs {
		if def.IsActive {
			out = append(out, *def)
		}
	}
	return out, nil
}

func (m *mockSLAStore) UserOverrideSLA(context.Context, int64) (*int64, error) { return nil, nil }

func (m *mockSLAStore) GetCompanyRef(context.Context, int64) (*sla.CompanyRef, error) {
	return nil, nil
}

func (m *mockSLAStore) CategorySLA(_ context.Context, category string) (*int64, error) {
	return m.categories[category], nil
}

func (m *mockSLAStore) CMDBItemSLA(context.Context, int64) (*int64, error) { return nil, nil }

func (m *mockSLAStore) DefaultSLA(context.Context) (*int64, error) { return m.defaultID, nil }

func (m *mockSLAStore) GetProfile(_ context.Context, id int64) (*domain.BusinessHoursProfile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, errors.New("profile not found")
}

func (m *mockSLAStore) ProfileForDefinition(ctx context.Context, def *domain.SLADefinition) (*domain.BusinessHoursProfile, error) {
	if def == nil || def.BusinessHoursProfileID == nil {
		return nil, nil
	}
	return m.GetProfile(ctx, *def.BusinessHoursProfileID)
}

type mockNotificationStore struct {
	created []*domain.Notification
}

func (m *mockNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationStore) ListByTicket(_ context.Context, ticketID int64, _ int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range m.created {
		if n.TicketID == ticketID {
			out = append(out, *n)
		}
	}
	return out, nil
}

type mockScopeProvider struct {
	stores map[string]Stores
	errs   map[string]error
}

func (m *mockScopeProvider) Scope(ctx context.Context, code string) (*Scope, error) {
	return m.ScopeFor(ctx, domain.Tenant{Code: code, IsActive: true})
}

func (m *mockScopeProvider) ScopeFor(_ context.Context, tenant domain.Tenant) (*Scope, error) {
	if err := m.errs[tenant.Code]; err != nil {
		return nil, err
	}
	stores, ok := m.stores[tenant.Code]
	if !ok {
		return nil, fmt.Errorf("unknown tenant %s", tenant.Code)
	}
	return &Scope{Tenant: tenant, Stores: stores}, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var _ repository.TicketRepository = (*mockTicketStore)(nil)
var _ repository.SLARepository = (*mockSLAStore)(nil)
var _ repository.NotificationRepository = (*mockNotificationStore)(nil)
var _ ScopeProvider = (*mockScopeProvider)(nil)
var _ events.Dispatcher = (*recordingDispatcher)(nil)
