package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/sla"
)

func standardDef() *domain.SLADefinition {
	return &domain.SLADefinition{
		ID:                    7,
		Name:                  "Standard",
		ResponseTargetMinutes: 60,
		ResolveTargetMinutes:  240,
		IsActive:              true,
	}
}

func newSLAFixture(tickets []*domain.Ticket, slas *mockSLAStore) (*SLAService, *mockTicketStore, *recordingDispatcher, time.Time) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	ticketStore := &mockTicketStore{tickets: tickets}
	dispatcher := &recordingDispatcher{}
	scopes := &mockScopeProvider{stores: map[string]Stores{
		"acme": {
			Tickets:       ticketStore,
			SLAs:          slas,
			Notifications: &mockNotificationStore{},
		},
	}}
	svc := NewSLAService(SLADependencies{
		Scopes:     scopes,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return now },
	})
	return svc, ticketStore, dispatcher, now
}

func TestApplySLAStampsDeadlines(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketStatusOpen, CreatedAt: created}
	defaultID := int64(7)
	slas := &mockSLAStore{
		defs:      map[int64]*domain.SLADefinition{7: standardDef()},
		defaultID: &defaultID,
	}
	svc, _, dispatcher, now := newSLAFixture([]*domain.Ticket{ticket}, slas)

	result, err := svc.ApplySLA(context.Background(), "acme", 1, nil)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, sla.SourceDefault, result.Source)
	require.NotNil(t, result.ResponseDueAt)
	require.NotNil(t, result.ResolveDueAt)
	assert.Equal(t, created.Add(60*time.Minute), *result.ResponseDueAt)
	assert.Equal(t, created.Add(300*time.Minute), *result.ResolveDueAt)

	require.NotNil(t, ticket.SLADefinitionID)
	assert.Equal(t, int64(7), *ticket.SLADefinitionID)
	require.NotNil(t, ticket.SLAAppliedAt)
	assert.Equal(t, now, *ticket.SLAAppliedAt)

	fired := dispatcher.byType(events.EventSLAApplied)
	require.Len(t, fired, 1)
	payload, ok := fired[0].Payload.(events.SLAAppliedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(7), payload.SLADefinitionID)
	assert.Equal(t, sla.SourceDefault, payload.Source)
}

func TestApplySLACategoryBeatsDefault(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketStatusOpen, Category: "Network", CreatedAt: created}
	categoryID, defaultID := int64(8), int64(7)
	slas := &mockSLAStore{
		defs: map[int64]*domain.SLADefinition{
			7: standardDef(),
			8: {ID: 8, Name: "Network", ResponseTargetMinutes: 30, ResolveTargetMinutes: 120, IsActive: true},
		},
		categories: map[string]*int64{"network": &categoryID},
		defaultID:  &defaultID,
	}
	svc, _, _, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	result, err := svc.ApplySLA(context.Background(), "acme", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, sla.SourceCategory, result.Source)
	assert.Equal(t, int64(8), *result.SLADefinitionID)
}

func TestApplySLAIdempotent(t *testing.T) {
	existing := int64(7)
	due := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:              1,
		Status:          domain.TicketStatusOpen,
		SLADefinitionID: &existing,
		ResponseDueAt:   &due,
	}
	defaultID := int64(9)
	slas := &mockSLAStore{
		defs:      map[int64]*domain.SLADefinition{7: standardDef()},
		defaultID: &defaultID,
	}
	svc, _, dispatcher, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	result, err := svc.ApplySLA(context.Background(), "acme", 1, nil)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.AlreadyApplied)
	assert.Equal(t, int64(7), *result.SLADefinitionID)
	assert.Empty(t, dispatcher.byType(events.EventSLAApplied))
}

func TestApplySLANoApplicableDefinition(t *testing.T) {
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketStatusOpen}
	svc, _, _, _ := newSLAFixture([]*domain.Ticket{ticket}, &mockSLAStore{defs: map[int64]*domain.SLADefinition{}})

	result, err := svc.ApplySLA(context.Background(), "acme", 1, nil)
	require.ErrorIs(t, err, ErrNoApplicableSLA)
	assert.Equal(t, sla.SourceError, result.Source)
	assert.Nil(t, ticket.SLADefinitionID)
}

func TestApplySLAUsesBusinessHours(t *testing.T) {
	// Friday 16:30, Mon-Fri 09:00-17:00: a 120-minute response budget
	// lands Monday 10:30.
	created := time.Date(2024, 6, 7, 16, 30, 0, 0, time.UTC)
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketStatusOpen, CreatedAt: created}
	profileID, defaultID := int64(3), int64(7)
	def := standardDef()
	def.ResponseTargetMinutes = 120
	def.BusinessHoursProfileID = &profileID
	slas := &mockSLAStore{
		defs: map[int64]*domain.SLADefinition{7: def},
		profiles: map[int64]*domain.BusinessHoursProfile{3: {
			ID:        3,
			Timezone:  "UTC",
			Weekdays:  []int{1, 2, 3, 4, 5},
			StartTime: "09:00",
			EndTime:   "17:00",
		}},
		defaultID: &defaultID,
	}
	svc, _, _, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	result, err := svc.ApplySLA(context.Background(), "acme", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC), *result.ResponseDueAt)
}

func TestMarkFirstResponseRecomputesResolveDeadline(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	slaID := int64(7)
	provisional := created.Add(5 * time.Hour)
	ticket := &domain.Ticket{
		ID:              1,
		Status:          domain.TicketStatusOpen,
		CreatedAt:       created,
		SLADefinitionID: &slaID,
		ResolveDueAt:    &provisional,
	}
	slas := &mockSLAStore{defs: map[int64]*domain.SLADefinition{7: standardDef()}}
	svc, _, dispatcher, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	respondedAt := created.Add(45 * time.Minute)
	recorded, err := svc.MarkFirstResponse(context.Background(), "acme", 1, respondedAt)
	require.NoError(t, err)
	assert.True(t, recorded)
	require.NotNil(t, ticket.FirstRespondedAt)
	assert.Equal(t, respondedAt, *ticket.FirstRespondedAt)
	// Re-anchored at the actual response, not the provisional chain.
	assert.Equal(t, respondedAt.Add(240*time.Minute), *ticket.ResolveDueAt)
	require.Len(t, dispatcher.byType(events.EventFirstResponseRecorded), 1)

	// The transition happens exactly once.
	recorded, err = svc.MarkFirstResponse(context.Background(), "acme", 1, respondedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, respondedAt, *ticket.FirstRespondedAt)
}

func TestMarkFirstResponsePrefersAfterResponseBudget(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	slaID := int64(7)
	ticket := &domain.Ticket{
		ID:              1,
		Status:          domain.TicketStatusOpen,
		CreatedAt:       created,
		SLADefinitionID: &slaID,
	}
	after := 90
	def := standardDef()
	def.ResolveAfterResponseMinutes = &after
	slas := &mockSLAStore{defs: map[int64]*domain.SLADefinition{7: def}}
	svc, _, _, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	respondedAt := created.Add(30 * time.Minute)
	_, err := svc.MarkFirstResponse(context.Background(), "acme", 1, respondedAt)
	require.NoError(t, err)
	assert.Equal(t, respondedAt.Add(90*time.Minute), *ticket.ResolveDueAt)
}

func TestBackfillAppliesMissingSLAs(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	slaID := int64(7)
	tickets := []*domain.Ticket{
		{ID: 1, Status: domain.TicketStatusOpen, CreatedAt: created},
		{ID: 2, Status: domain.TicketStatusOpen, CreatedAt: created.Add(time.Hour)},
		{ID: 3, Status: domain.TicketStatusOpen, CreatedAt: created, SLADefinitionID: &slaID},
	}
	defaultID := int64(7)
	slas := &mockSLAStore{
		defs:      map[int64]*domain.SLADefinition{7: standardDef()},
		defaultID: &defaultID,
	}
	svc, _, _, _ := newSLAFixture(tickets, slas)

	result, err := svc.BackfillSLAs(context.Background(), "acme", 100)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 0, result.Unresolved)
	assert.NotNil(t, tickets[0].SLADefinitionID)
	assert.NotNil(t, tickets[1].SLADefinitionID)
}

func TestBackfillCountsUnresolvable(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	tickets := []*domain.Ticket{
		{ID: 1, Status: domain.TicketStatusOpen, CreatedAt: created},
	}
	svc, _, _, _ := newSLAFixture(tickets, &mockSLAStore{defs: map[int64]*domain.SLADefinition{}})

	result, err := svc.BackfillSLAs(context.Background(), "acme", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 1, result.Unresolved)
}

func TestTicketStatusEvaluatesBothClocks(t *testing.T) {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	slaID := int64(7)
	responseDue := created.Add(time.Hour)
	resolveDue := created.Add(5 * time.Hour)
	ticket := &domain.Ticket{
		ID:              1,
		Status:          domain.TicketStatusOpen,
		CreatedAt:       created,
		SLADefinitionID: &slaID,
		ResponseDueAt:   &responseDue,
		ResolveDueAt:    &resolveDue,
	}
	slas := &mockSLAStore{defs: map[int64]*domain.SLADefinition{7: standardDef()}}
	svc, _, _, _ := newSLAFixture([]*domain.Ticket{ticket}, slas)

	view, err := svc.TicketStatus(context.Background(), "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, sla.PhaseAwaitingResponse, view.Status.Phase)
	assert.Equal(t, sla.StateBreached, view.Status.Response.State)
	assert.Equal(t, sla.StatePending, view.Status.Resolve.State)
	assert.Equal(t, "Standard", view.Facts.SLAName)
}
