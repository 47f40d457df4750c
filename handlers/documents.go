package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// DocumentHandler handles knowledge-document requests
type DocumentHandler struct {
	documents *services.DocumentService
	logger    *utils.Logger
}

// NewDocumentHandler creates a new document handler instance
func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    utils.GetLogger(),
	}
}

// ListDocuments handles GET /api/documents requests
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.documents.List()
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to list documents", err, nil)
		return utils.InternalServerErrorResponse(c, "Failed to retrieve documents")
	}

	return utils.SuccessResponse(c, "Documents retrieved successfully", docs)
}

// CreateDocument handles POST /api/documents requests
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	var req models.DocumentRequest
	if !utils.ParseAndValidate(c, &req) {
		return nil
	}

	doc, err := h.documents.Create(&req)
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to store document", err, map[string]interface{}{
			"filename": req.Filename,
		})
		return utils.InternalServerErrorResponse(c, "Failed to store document")
	}

	c.Status(fiber.StatusCreated)
	return utils.SuccessResponse(c, "Document stored successfully", doc)
}

// DeleteDocument handles DELETE /api/documents/:id requests
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.documents.Delete(id); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			return utils.NotFoundResponse(c, "Document")
		}
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to delete document", err, map[string]interface{}{
			"document_id": id,
		})
		return utils.InternalServerErrorResponse(c, "Failed to delete document")
	}

	return utils.SuccessResponse(c, "Document deleted successfully", nil)
}
