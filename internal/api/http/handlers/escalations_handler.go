package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/service"
)

// EscalationRunner runs one SLA escalation pass.
type EscalationRunner interface {
	Run(ctx context.Context) service.EscalationResult
}

// EscalationsHandler lets admins trigger escalation outside the schedule.
type EscalationsHandler struct {
	runner EscalationRunner
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(runner EscalationRunner) *EscalationsHandler {
	return &EscalationsHandler{runner: runner}
}

// Run POST /api/escalations/run.
func (h *EscalationsHandler) Run(c *fiber.Ctx) error {
	result := h.runner.Run(c.UserContext())
	return c.JSON(fiber.Map{"data": result})
}
