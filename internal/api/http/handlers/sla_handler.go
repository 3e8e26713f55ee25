package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// SLAHandler exposes SLA application and status endpoints.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// GetTicketSLA GET /tenants/:tenant/tickets/:id/sla.
func (h *SLAHandler) GetTicketSLA(c *fiber.Ctx) error {
	tenant, ticketID, err := tenantTicketParams(c)
	if err != nil {
		return err
	}
	view, err := h.service.TicketStatus(c.UserContext(), tenant, ticketID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := dto.TicketSLAResponse{
		TicketID:      view.TicketID,
		SLAName:       view.Facts.SLAName,
		Status:        view.Status,
		Facts:         view.Facts,
		Notifications: make([]dto.NotificationResponse, 0, len(view.Notifications)),
	}
	for _, n := range view.Notifications {
		resp.Notifications = append(resp.Notifications, dto.NotificationResponse{
			ID:        n.ID,
			Phase:     n.Phase,
			Severity:  n.Severity,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ApplySLA POST /tenants/:tenant/tickets/:id/sla/apply.
func (h *SLAHandler) ApplySLA(c *fiber.Ctx) error {
	tenant, ticketID, err := tenantTicketParams(c)
	if err != nil {
		return err
	}
	var req dto.ApplySLARequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	result, err := h.service.ApplySLA(c.UserContext(), tenant, ticketID, req.OverrideSLADefinitionID)
	if err != nil {
		if errors.Is(err, service.ErrNoApplicableSLA) {
			return apperrors.NewDomainError("NO_APPLICABLE_SLA",
				"no active sla definition matches this ticket",
				fiber.StatusUnprocessableEntity, nil)
		}
		return mapServiceError(err)
	}
	status := fiber.StatusOK
	if result.Applied {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": result})
}

// FirstResponse POST /tenants/:tenant/tickets/:id/first-response.
func (h *SLAHandler) FirstResponse(c *fiber.Ctx) error {
	tenant, ticketID, err := tenantTicketParams(c)
	if err != nil {
		return err
	}
	var req dto.FirstResponseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	respondedAt := time.Now()
	if req.RespondedAt != nil {
		respondedAt = *req.RespondedAt
	}

	recorded, err := h.service.MarkFirstResponse(c.UserContext(), tenant, ticketID, respondedAt)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"recorded":     recorded,
		"responded_at": respondedAt,
	}})
}

// Backfill POST /tenants/:tenant/sla/backfill.
func (h *SLAHandler) Backfill(c *fiber.Ctx) error {
	tenant := c.Params("tenant")
	if tenant == "" {
		return apperrors.NewValidationError("tenant required", nil)
	}
	var req dto.BackfillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	result, err := h.service.BackfillSLAs(c.UserContext(), tenant, req.Limit)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": result})
}

func tenantTicketParams(c *fiber.Ctx) (string, int64, error) {
	tenant := c.Params("tenant")
	if tenant == "" {
		return "", 0, apperrors.NewValidationError("tenant required", nil)
	}
	ticketID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || ticketID <= 0 {
		return "", 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return tenant, ticketID, nil
}

func mapServiceError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}
