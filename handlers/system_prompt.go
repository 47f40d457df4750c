package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// SystemPromptHandler handles the agent-under-test framing prompt
type SystemPromptHandler struct {
	prompts *services.SystemPromptStore
	logger  *utils.Logger
}

// NewSystemPromptHandler creates a new system-prompt handler instance
func NewSystemPromptHandler(prompts *services.SystemPromptStore) *SystemPromptHandler {
	return &SystemPromptHandler{
		prompts: prompts,
		logger:  utils.GetLogger(),
	}
}

// GetSystemPrompt handles GET /api/system-prompt requests
func (h *SystemPromptHandler) GetSystemPrompt(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "System prompt retrieved successfully", map[string]interface{}{
		"prompt": h.prompts.Get(),
	})
}

// UpdateSystemPrompt handles PUT /api/system-prompt requests. The new prompt
// takes effect on the next exchange.
func (h *SystemPromptHandler) UpdateSystemPrompt(c *fiber.Ctx) error {
	var req models.SystemPromptRequest
	if !utils.ParseAndValidate(c, &req) {
		return nil
	}

	h.prompts.Set(req.Prompt)
	h.logger.WithTraceID(utils.GetTraceID(c)).Info("System prompt updated", map[string]interface{}{
		"length": len(req.Prompt),
	})

	return utils.SuccessResponse(c, "System prompt updated successfully", nil)
}
