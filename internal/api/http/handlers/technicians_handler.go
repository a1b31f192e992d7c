package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// TechniciansHandler manages technician administration.
type TechniciansHandler struct {
	coordinator *service.LifecycleCoordinator
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(coordinator *service.LifecycleCoordinator) *TechniciansHandler {
	return &TechniciansHandler{coordinator: coordinator}
}

// Decommission DELETE /technicians/:id.
func (h *TechniciansHandler) Decommission(c *fiber.Ctx) error {
	report, err := h.coordinator.DecommissionTechnician(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
