package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// RunHandler handles test-run control requests, both global and per client
type RunHandler struct {
	coordinator *services.GlobalCoordinator
	logger      *utils.Logger
}

// NewRunHandler creates a new run handler instance
func NewRunHandler(coordinator *services.GlobalCoordinator) *RunHandler {
	return &RunHandler{
		coordinator: coordinator,
		logger:      utils.GetLogger(),
	}
}

// StartAll handles POST /api/run/start requests
func (h *RunHandler) StartAll(c *fiber.Ctx) error {
	traceID := utils.GetTraceID(c)

	if err := h.coordinator.StartAll(); err != nil {
		switch {
		case errors.Is(err, services.ErrAPIKeyNotConfigured):
			return utils.ErrorResponse(c, fiber.StatusConflict, "API_KEY_NOT_CONFIGURED",
				"Chat API key is not configured; testing cannot start", nil)
		case errors.Is(err, services.ErrNoClients):
			return utils.ErrorResponse(c, fiber.StatusConflict, "NO_CLIENTS",
				"No clients are configured", nil)
		case errors.Is(err, services.ErrAllClientsAtLimit):
			return utils.ErrorResponse(c, fiber.StatusConflict, "ALL_CLIENTS_AT_LIMIT",
				"All clients have reached their message limits", nil)
		default:
			h.logger.WithTraceID(traceID).Error("Failed to start testing", err, nil)
			return utils.InternalServerErrorResponse(c, "Failed to start testing")
		}
	}

	return utils.SuccessResponse(c, "Continuous testing started", map[string]interface{}{
		"mode": h.coordinator.Mode().String(),
	})
}

// StopAll handles POST /api/run/stop requests
func (h *RunHandler) StopAll(c *fiber.Ctx) error {
	h.coordinator.StopAll()
	return utils.SuccessResponse(c, "Continuous testing stopped", map[string]interface{}{
		"mode": h.coordinator.Mode().String(),
	})
}

// ClearAll handles POST /api/run/clear requests
func (h *RunHandler) ClearAll(c *fiber.Ctx) error {
	h.coordinator.ClearAll()
	return utils.SuccessResponse(c, "All conversations cleared", nil)
}

// Status handles GET /api/run/status requests
func (h *RunHandler) Status(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Run status retrieved successfully", map[string]interface{}{
		"mode":           h.coordinator.Mode().String(),
		"total_messages": h.coordinator.TotalMessages(),
		"clients":        h.coordinator.Status(),
	})
}

// AdvanceClient handles POST /api/clients/:id/advance requests
func (h *RunHandler) AdvanceClient(c *fiber.Ctx) error {
	id := c.Params("id")

	outcome, err := h.coordinator.AdvanceClient(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		if errors.Is(err, services.ErrAPIKeyNotConfigured) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "API_KEY_NOT_CONFIGURED",
				"Chat API key is not configured", nil)
		}
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Manual advance failed", err, map[string]interface{}{
			"client_id": id,
		})
		return utils.InternalServerErrorResponse(c, "Failed to advance conversation")
	}

	switch outcome {
	case services.AdvanceLimitReached:
		return utils.ErrorResponse(c, fiber.StatusConflict, "LIMIT_REACHED",
			"Client has reached its message limit", nil)
	case services.AdvanceBusy:
		return utils.ErrorResponse(c, fiber.StatusConflict, "EXCHANGE_IN_FLIGHT",
			"An exchange is already in progress for this client", nil)
	}

	return utils.SuccessResponse(c, "Exchange completed", map[string]interface{}{
		"outcome": outcome.String(),
	})
}

// StartClient handles POST /api/clients/:id/start requests
func (h *RunHandler) StartClient(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.coordinator.StartClient(id); err != nil {
		switch {
		case errors.Is(err, services.ErrClientNotFound):
			return utils.NotFoundResponse(c, "Client")
		case errors.Is(err, services.ErrAPIKeyNotConfigured):
			return utils.ErrorResponse(c, fiber.StatusConflict, "API_KEY_NOT_CONFIGURED",
				"Chat API key is not configured", nil)
		case errors.Is(err, services.ErrLimitReached):
			return utils.ErrorResponse(c, fiber.StatusConflict, "LIMIT_REACHED",
				"Client has reached its message limit", nil)
		default:
			h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to start client", err, map[string]interface{}{
				"client_id": id,
			})
			return utils.InternalServerErrorResponse(c, "Failed to start client")
		}
	}

	return utils.SuccessResponse(c, "Client scheduler started", nil)
}

// StopClient handles POST /api/clients/:id/stop requests
func (h *RunHandler) StopClient(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.coordinator.StopClient(id); err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		return utils.InternalServerErrorResponse(c, "Failed to stop client")
	}

	return utils.SuccessResponse(c, "Client scheduler stopped", nil)
}

// ResetClient handles POST /api/clients/:id/reset requests
func (h *RunHandler) ResetClient(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.coordinator.ResetClient(id); err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		return utils.InternalServerErrorResponse(c, "Failed to reset client")
	}

	return utils.SuccessResponse(c, "Client conversation reset", nil)
}

// GetMessages handles GET /api/clients/:id/messages requests
func (h *RunHandler) GetMessages(c *fiber.Ctx) error {
	id := c.Params("id")

	messages, err := h.coordinator.Transcript(id)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		return utils.InternalServerErrorResponse(c, "Failed to retrieve messages")
	}

	return utils.SuccessResponse(c, "Messages retrieved successfully", messages)
}
