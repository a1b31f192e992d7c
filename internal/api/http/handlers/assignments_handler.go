package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// AssignmentsHandler manages technician work and verification endpoints.
type AssignmentsHandler struct {
	coordinator *service.LifecycleCoordinator
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(coordinator *service.LifecycleCoordinator) *AssignmentsHandler {
	return &AssignmentsHandler{coordinator: coordinator}
}

// Get GET /assignments/:id.
func (h *AssignmentsHandler) Get(c *fiber.Ctx) error {
	assignment, err := h.coordinator.GetAssignment(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// Accept PUT /assignments/:id/accept.
func (h *AssignmentsHandler) Accept(c *fiber.Ctx) error {
	assignment, err := h.coordinator.Accept(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// Start PUT /assignments/:id/start.
func (h *AssignmentsHandler) Start(c *fiber.Ctx) error {
	assignment, err := h.coordinator.StartWork(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// SubmitEvidence POST /assignments/:id/evidence.
func (h *AssignmentsHandler) SubmitEvidence(c *fiber.Ctx) error {
	var req dto.EvidenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	assignment, err := h.coordinator.SubmitEvidence(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Images)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// Verify POST /assignments/:id/verify.
func (h *AssignmentsHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action, ok := service.ParseVerifyAction(req.Action)
	if !ok {
		return apperrors.NewValidationError("action must be APPROVE or REJECT", map[string]any{"action": req.Action})
	}
	assignment, err := h.coordinator.Verify(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), action, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// AddRepairLog POST /assignments/:id/repair-logs.
func (h *AssignmentsHandler) AddRepairLog(c *fiber.Ctx) error {
	var req dto.RepairLogRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.RepairLogStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status == "" {
		status = domain.RepairLogOngoing
	}
	entry, err := h.coordinator.AddRepairLog(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), service.RepairLogInput{
		Description: req.Description,
		Action:      req.Action,
		Status:      status,
		TimeSpent:   req.TimeSpent,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRepairLogResponse(entry)})
}

// ListRepairLogs GET /assignments/:id/repair-logs.
func (h *AssignmentsHandler) ListRepairLogs(c *fiber.Ctx) error {
	logs, err := h.coordinator.ListRepairLogs(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.RepairLogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, dto.NewRepairLogResponse(&logs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
