package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// ClientHandler handles client management requests
type ClientHandler struct {
	clients *services.ClientService
	logger  *utils.Logger
}

// NewClientHandler creates a new client handler instance
func NewClientHandler(clients *services.ClientService) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		logger:  utils.GetLogger(),
	}
}

// ListClients handles GET /api/clients requests
func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	clients, err := h.clients.List()
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to list clients", err, nil)
		return utils.InternalServerErrorResponse(c, "Failed to retrieve clients")
	}

	return utils.SuccessResponse(c, "Clients retrieved successfully", clients)
}

// GetClient handles GET /api/clients/:id requests
func (h *ClientHandler) GetClient(c *fiber.Ctx) error {
	id := c.Params("id")

	client, err := h.clients.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to get client", err, map[string]interface{}{
			"client_id": id,
		})
		return utils.InternalServerErrorResponse(c, "Failed to retrieve client")
	}

	return utils.SuccessResponse(c, "Client retrieved successfully", client)
}

// CreateClient handles POST /api/clients requests
func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	traceID := utils.GetTraceID(c)

	var req models.ClientRequest
	if !utils.ParseAndValidate(c, &req) {
		return nil
	}

	client, err := h.clients.Create(&req)
	if err != nil {
		h.logger.WithTraceID(traceID).Error("Failed to create client", err, map[string]interface{}{
			"name": req.Name,
		})
		return utils.InternalServerErrorResponse(c, "Failed to create client")
	}

	h.logger.WithTraceID(traceID).Info("Client created", map[string]interface{}{
		"client_id": client.ID,
		"name":      client.Name,
	})

	c.Status(fiber.StatusCreated)
	return utils.SuccessResponse(c, "Client created successfully", client)
}

// UpdateClient handles PUT /api/clients/:id requests
func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	traceID := utils.GetTraceID(c)
	id := c.Params("id")

	var req models.ClientRequest
	if !utils.ParseAndValidate(c, &req) {
		return nil
	}

	client, err := h.clients.Update(id, &req)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		h.logger.WithTraceID(traceID).Error("Failed to update client", err, map[string]interface{}{
			"client_id": id,
		})
		return utils.InternalServerErrorResponse(c, "Failed to update client")
	}

	return utils.SuccessResponse(c, "Client updated successfully", client)
}

// DeleteClient handles DELETE /api/clients/:id requests
func (h *ClientHandler) DeleteClient(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.clients.Delete(id); err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return utils.NotFoundResponse(c, "Client")
		}
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to delete client", err, map[string]interface{}{
			"client_id": id,
		})
		return utils.InternalServerErrorResponse(c, "Failed to delete client")
	}

	return utils.SuccessResponse(c, "Client deleted successfully", nil)
}
