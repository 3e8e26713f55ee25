// Package scoring ranks pool tickets for claim ordering. The AI
// strategy is preferred when a backend is configured; the heuristic is
// both the fallback and the offline baseline.
package scoring

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/sla"
)

const (
	baseScore = 50

	priorityCriticalBonus = 30
	priorityHighBonus     = 15
	priorityLowPenalty    = 15

	breachedBonus  = 25
	dueWithin1hBonus = 20
	dueWithin4hBonus = 10

	agePerDayBonus = 2
	ageBonusCap    = 10
)

// Heuristic computes a deterministic priority score from ticket
// priority, SLA proximity and age. Always in [0, 100].
func Heuristic(now time.Time, ticket *domain.Ticket, status sla.Status) (int, []string) {
	score := baseScore
	var factors []string

	switch ticket.Priority {
	case domain.TicketPriorityCritical:
		score += priorityCriticalBonus
		factors = append(factors, "priority critical")
	case domain.TicketPriorityHigh:
		score += priorityHighBonus
		factors = append(factors, "priority high")
	case domain.TicketPriorityLow:
		score -= priorityLowPenalty
		factors = append(factors, "priority low")
	}

	if status.Response.State == sla.StateBreached || status.Resolve.State == sla.StateBreached {
		score += breachedBonus
		factors = append(factors, "sla breached")
	} else if due := activeDue(ticket); due != nil {
		remaining := due.Sub(now)
		switch {
		case remaining <= time.Hour:
			score += dueWithin1hBonus
			factors = append(factors, "due within 1h")
		case remaining <= 4*time.Hour:
			score += dueWithin4hBonus
			factors = append(factors, "due within 4h")
		}
	}

	if age := now.Sub(ticket.CreatedAt); age > 24*time.Hour {
		days := int(age.Hours() / 24)
		bonus := days * agePerDayBonus
		if bonus > ageBonusCap {
			bonus = ageBonusCap
		}
		score += bonus
		factors = append(factors, fmt.Sprintf("age %dd", days))
	}

	return Clamp(score), factors
}

// activeDue picks the deadline currently driving urgency: the response
// due date until first response, the resolve due date after.
func activeDue(ticket *domain.Ticket) *time.Time {
	if ticket.FirstRespondedAt == nil {
		return ticket.ResponseDueAt
	}
	return ticket.ResolveDueAt
}

// Clamp bounds a score to the valid pool range.
func Clamp(score int) int {
	if score < domain.PoolScoreMin {
		return domain.PoolScoreMin
	}
	if score > domain.PoolScoreMax {
		return domain.PoolScoreMax
	}
	return score
}
