package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// PoolHandler exposes pool scoring endpoints.
type PoolHandler struct {
	service *service.PoolService
}

// NewPoolHandler constructs handler.
func NewPoolHandler(poolService *service.PoolService) *PoolHandler {
	return &PoolHandler{service: poolService}
}

// ScoreTicket POST /tenants/:tenant/tickets/:id/pool/score.
// ?use_ai=false restricts the call to the heuristic.
func (h *PoolHandler) ScoreTicket(c *fiber.Ctx) error {
	tenant, ticketID, err := tenantTicketParams(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.ScoreTicket(c.UserContext(), tenant, ticketID, c.QueryBool("use_ai", true))
	if err != nil {
		return mapPoolError(err)
	}
	return c.JSON(fiber.Map{"data": outcome})
}

// TicketEnteredPool POST /tenants/:tenant/tickets/:id/pool/entered.
// Fired by the ticket system when a ticket lands in the shared pool;
// scoring waits out a short settle delay first.
func (h *PoolHandler) TicketEnteredPool(c *fiber.Ctx) error {
	tenant, ticketID, err := tenantTicketParams(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.ScoreOnEntry(c.UserContext(), tenant, ticketID, c.QueryBool("use_ai", true))
	if err != nil {
		return mapPoolError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": outcome})
}

// Recalculate POST /tenants/:tenant/pool/recalculate.
// ?use_ai=false restricts the batch to the heuristic.
func (h *PoolHandler) Recalculate(c *fiber.Ctx) error {
	tenant := c.Params("tenant")
	if tenant == "" {
		return apperrors.NewValidationError("tenant required", nil)
	}
	outcome, err := h.service.RecalculateScores(c.UserContext(), tenant, c.QueryBool("use_ai", true))
	if err != nil {
		return mapPoolError(err)
	}
	return c.JSON(fiber.Map{"data": outcome})
}

func mapPoolError(err error) error {
	if errors.Is(err, service.ErrNotInPool) {
		return apperrors.NewConflict("ticket is not in a scorable pool state", nil)
	}
	return mapServiceError(err)
}
