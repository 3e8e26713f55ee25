package scoring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/ai"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/sla"
)

type stubClassifier struct {
	response json.RawMessage
	err      error
	calls    int
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ any) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newTicket(priority domain.TicketPriority, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        42,
		Subject:   "printer on fire",
		Status:    domain.TicketStatusOpen,
		Priority:  priority,
		CreatedAt: createdAt,
	}
}

func TestHeuristicBaseline(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	ticket := newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour))

	score, factors := Heuristic(now, ticket, sla.Status{})

	assert.Equal(t, 50, score)
	assert.Empty(t, factors)
}

func TestHeuristicPriorityMonotonic(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)

	low, _ := Heuristic(now, newTicket(domain.TicketPriorityLow, created), sla.Status{})
	medium, _ := Heuristic(now, newTicket(domain.TicketPriorityMedium, created), sla.Status{})
	high, _ := Heuristic(now, newTicket(domain.TicketPriorityHigh, created), sla.Status{})
	critical, _ := Heuristic(now, newTicket(domain.TicketPriorityCritical, created), sla.Status{})

	assert.Less(t, low, medium)
	assert.Less(t, medium, high)
	assert.Less(t, high, critical)
}

func TestHeuristicBreachDominatesProximity(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	due := now.Add(30 * time.Minute)
	ticket := newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour))
	ticket.ResponseDueAt = &due

	breached, factors := Heuristic(now, ticket, sla.Status{
		Response: sla.PhaseState{State: sla.StateBreached},
	})
	assert.Equal(t, 50+25, breached)
	assert.Contains(t, factors, "sla breached")

	near, factors := Heuristic(now, ticket, sla.Status{
		Response: sla.PhaseState{State: sla.StateNearBreach},
	})
	assert.Equal(t, 50+20, near)
	assert.Contains(t, factors, "due within 1h")
}

func TestHeuristicProximityUsesResolveAfterResponse(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	responded := now.Add(-2 * time.Hour)
	responseDue := now.Add(-time.Hour)
	resolveDue := now.Add(3 * time.Hour)

	ticket := newTicket(domain.TicketPriorityMedium, now.Add(-3*time.Hour))
	ticket.FirstRespondedAt = &responded
	ticket.ResponseDueAt = &responseDue
	ticket.ResolveDueAt = &resolveDue

	score, factors := Heuristic(now, ticket, sla.Status{})
	assert.Equal(t, 50+10, score)
	assert.Contains(t, factors, "due within 4h")
}

func TestHeuristicAgeBonusCapped(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	twoDays, _ := Heuristic(now, newTicket(domain.TicketPriorityMedium, now.Add(-49*time.Hour)), sla.Status{})
	assert.Equal(t, 50+4, twoDays)

	tenDays, _ := Heuristic(now, newTicket(domain.TicketPriorityMedium, now.Add(-10*24*time.Hour)), sla.Status{})
	assert.Equal(t, 50+10, tenDays)
}

func TestHeuristicClampedToRange(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	ticket := newTicket(domain.TicketPriorityCritical, now.Add(-30*24*time.Hour))
	score, _ := Heuristic(now, ticket, sla.Status{
		Response: sla.PhaseState{State: sla.StateBreached},
	})
	assert.Equal(t, 100, score)

	low, _ := Heuristic(now, newTicket(domain.TicketPriorityLow, now), sla.Status{})
	assert.GreaterOrEqual(t, low, 0)
}

func TestScorerUsesBackendResult(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stub := &stubClassifier{response: json.RawMessage(`{"score": 87, "factors": ["vip company"]}`)}
	scorer := NewScorer(stub, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityHigh, now.Add(-time.Hour)), nil, nil, true)

	require.Equal(t, MethodAI, result.Method)
	assert.Equal(t, 87, result.Score)
	assert.Equal(t, []string{"vip company"}, result.Factors)
	assert.Equal(t, 1, stub.calls)
}

func TestScorerFallsBackOnBackendError(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stub := &stubClassifier{err: ai.ErrTransient}
	scorer := NewScorer(stub, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityCritical, now.Add(-time.Hour)), nil, nil, true)

	require.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, 50+30, result.Score)
}

func TestScorerRejectsOutOfRangeBackendScore(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stub := &stubClassifier{response: json.RawMessage(`{"score": 180}`)}
	scorer := NewScorer(stub, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour)), nil, nil, true)

	assert.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, 50, result.Score)
}

func TestScorerRejectsMalformedBackendPayload(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stub := &stubClassifier{response: json.RawMessage(`{"factors": []}`)}
	scorer := NewScorer(stub, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour)), nil, nil, true)

	assert.Equal(t, MethodHeuristic, result.Method)
}

func TestScorerHeuristicOnlyWithoutClassifier(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	scorer := NewScorer(nil, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour)), nil, nil, true)

	assert.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, 50, result.Score)
}

func TestScorerSkipsBackendWhenAIDisabled(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stub := &stubClassifier{response: json.RawMessage(`{"score": 87}`)}
	scorer := NewScorer(stub, zap.NewNop())

	result := scorer.Score(context.Background(), now, newTicket(domain.TicketPriorityMedium, now.Add(-time.Hour)), nil, nil, false)

	assert.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 0, stub.calls)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5))
	assert.Equal(t, 100, Clamp(130))
	assert.Equal(t, 67, Clamp(67))
}
