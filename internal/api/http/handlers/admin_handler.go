package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/worker"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// AdminHandler exposes operational triggers and introspection.
type AdminHandler struct {
	notifier *worker.BreachNotifier
	metrics  *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(notifier *worker.BreachNotifier, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{notifier: notifier, metrics: metrics}
}

// TriggerSweep POST /admin/sweep runs one breach-notifier sweep inline
// and reports its stats.
func (h *AdminHandler) TriggerSweep(c *fiber.Ctx) error {
	stats, err := h.notifier.RunOnce(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Metrics GET /admin/metrics reports per-route request counters.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
