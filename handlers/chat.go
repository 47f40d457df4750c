package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// ChatHandler handles the manual single-chat exchange
type ChatHandler struct {
	replies      services.ReplyProvider
	sink         services.ConversationSink
	systemPrompt func() string
	logger       *utils.Logger
}

// NewChatHandler creates a new chat handler instance
func NewChatHandler(replies services.ReplyProvider, sink services.ConversationSink, systemPrompt func() string) *ChatHandler {
	return &ChatHandler{
		replies:      replies,
		sink:         sink,
		systemPrompt: systemPrompt,
		logger:       utils.GetLogger(),
	}
}

// SendMessage handles POST /api/chat/send requests. Unlike the scheduled
// multi-client loop, this path replays the full conversation history in the
// upstream request.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	traceID := utils.GetTraceID(c)

	var req models.ChatSendRequest
	if !utils.ParseAndValidate(c, &req) {
		return nil
	}

	reply, err := h.replies.Reply(c.Context(), h.systemPrompt(), req.History, req.Message)
	fallback := false
	if err != nil {
		h.logger.WithTraceID(traceID).Warn("Chat reply failed, substituting fallback", map[string]interface{}{
			"client_id": req.ClientID,
			"error":     err.Error(),
		})
		reply = services.FallbackChatReply
		fallback = true
	}

	// Best-effort persistence; a failed write never fails the exchange.
	if saveErr := h.sink.SaveConversation(&models.Conversation{
		ClientID:        req.ClientID,
		CustomerMessage: req.Message,
		ServiceResponse: reply,
		TestMode:        models.TestModeSingleChat,
	}); saveErr != nil {
		h.logger.WithTraceID(traceID).Error("Failed to persist chat exchange", saveErr, map[string]interface{}{
			"client_id": req.ClientID,
		})
	}

	return utils.SuccessResponse(c, "Message sent successfully", models.ChatSendResponse{
		Reply:     reply,
		Fallback:  fallback,
		Timestamp: time.Now(),
	})
}
