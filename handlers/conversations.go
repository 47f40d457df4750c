package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/store"
	"github.com/aiqalab/redteam-console/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ConversationHandler handles stored-conversation queries
type ConversationHandler struct {
	store  *store.Store
	logger *utils.Logger
}

// NewConversationHandler creates a new conversation handler instance
func NewConversationHandler(st *store.Store) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		logger: utils.GetLogger(),
	}
}

// ListConversations handles GET /api/conversations requests
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	filter := store.ConversationFilter{
		ClientID: c.Query("client_id"),
		TestMode: c.Query("test_mode"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	conversations, total, err := h.store.ListConversations(filter)
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to list conversations", err, map[string]interface{}{
			"client_id": filter.ClientID,
			"test_mode": filter.TestMode,
		})
		return utils.InternalServerErrorResponse(c, "Failed to retrieve conversations")
	}

	return utils.PaginatedSuccessResponse(c, "Conversations retrieved successfully",
		conversations, utils.CreatePagination(page, limit, total))
}
