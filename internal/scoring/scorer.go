package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/ai"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// MethodAI and MethodHeuristic label how a score was produced.
const (
	MethodAI        = "ai"
	MethodHeuristic = "heuristic"
)

const poolScoreTask = "ticket_pool_score"

// Result is a completed scoring decision. Scoring never fails: a
// backend error is absorbed into a heuristic result.
type Result struct {
	Score   int
	Factors []string
	Method  string
}

// Scorer produces pool scores, preferring the classification backend
// and degrading to the heuristic.
type Scorer struct {
	classifier ai.Classifier
	logger     *zap.Logger
}

// NewScorer builds a scorer. A nil classifier means heuristic-only.
func NewScorer(classifier ai.Classifier, logger *zap.Logger) *Scorer {
	return &Scorer{classifier: classifier, logger: logger}
}

type scoreInput struct {
	TicketID  int64                 `json:"ticket_id"`
	Subject   string                `json:"subject"`
	Category  string                `json:"category,omitempty"`
	Priority  domain.TicketPriority `json:"priority"`
	Status    domain.TicketStatus   `json:"status"`
	AgeHours  float64               `json:"age_hours"`
	SLA       sla.Facts             `json:"sla"`
	Requester string                `json:"requester,omitempty"`
	Company   string                `json:"company,omitempty"`
}

type scoreResponse struct {
	Score   *int     `json:"score"`
	Factors []string `json:"factors"`
}

// Score evaluates one ticket. The SLA status is computed once and
// shared between the backend context and the heuristic fallback.
// useAI false forces the heuristic for this call even when a
// classifier is configured.
func (s *Scorer) Score(ctx context.Context, now time.Time, ticket *domain.Ticket, def *domain.SLADefinition, profile *domain.BusinessHoursProfile, useAI bool) Result {
	status := sla.ComputeStatus(now, ticket, def, profile)

	if useAI && s.classifier != nil {
		result, err := s.classify(ctx, now, ticket, def, profile)
		if err == nil {
			return result
		}
		s.logger.Warn("ai scoring failed, using heuristic",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}

	score, factors := Heuristic(now, ticket, status)
	return Result{Score: score, Factors: factors, Method: MethodHeuristic}
}

func (s *Scorer) classify(ctx context.Context, now time.Time, ticket *domain.Ticket, def *domain.SLADefinition, profile *domain.BusinessHoursProfile) (Result, error) {
	input := scoreInput{
		TicketID:  ticket.ID,
		Subject:   ticket.Subject,
		Category:  ticket.Category,
		Priority:  ticket.Priority,
		Status:    ticket.Status,
		AgeHours:  now.Sub(ticket.CreatedAt).Hours(),
		SLA:       sla.BuildFacts(now, ticket, def, profile),
		Requester: ticket.RequesterName,
		Company:   ticket.CompanyName,
	}

	raw, err := s.classifier.Classify(ctx, poolScoreTask, input)
	if err != nil {
		return Result{}, err
	}

	var resp scoreResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ai.ErrBadPayload, err)
	}
	if resp.Score == nil {
		return Result{}, fmt.Errorf("%w: missing score", ai.ErrBadPayload)
	}
	if *resp.Score < domain.PoolScoreMin || *resp.Score > domain.PoolScoreMax {
		return Result{}, fmt.Errorf("%w: score %d out of range", ai.ErrBadPayload, *resp.Score)
	}
	return Result{Score: *resp.Score, Factors: resp.Factors, Method: MethodAI}, nil
}
