package services

import (
	"context"

	"github.com/aiqalab/redteam-console/models"
)

// ReplyProvider is the chat-completion boundary. One call per exchange; the
// multi-client driver sends only the current prompt, the single-chat path
// replays history.
type ReplyProvider interface {
	Reply(ctx context.Context, systemPrompt string, history []models.ChatTurn, prompt string) (string, error)
	Paraphrase(ctx context.Context, testCase models.TestCase) string
	IsAvailable() bool
}

// ConversationSink receives one complete row per exchange. Writes are
// best-effort; failures never block the conversation loop.
type ConversationSink interface {
	SaveConversation(conv *models.Conversation) error
}

// WebSocketBroadcaster interface for WebSocket broadcasting
type WebSocketBroadcaster interface {
	BroadcastToAll(msgType string, data interface{})
}

// CountObserver is notified after each completed exchange with the client's
// current customer-message count.
type CountObserver interface {
	OnClientMessageCountChange(clientID string, count int)
}
