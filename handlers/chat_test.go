package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
)

func TestChatSend(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/chat/send", models.ChatSendRequest{
		Message: "Do you offer discounts?",
		History: []models.ChatTurn{
			{Role: models.SenderCustomer, Content: "Hello"},
			{Role: models.SenderService, Content: "Hi, how can I help?"},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "service reply", data["reply"])
	assert.Equal(t, false, data["fallback"])

	// The exchange is persisted under the single-chat mode
	_, body = env.request(t, http.MethodGet, "/api/conversations?test_mode=single_chat", nil)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestChatSendFallbackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.replies.mu.Lock()
	env.replies.err = errors.New("upstream down")
	env.replies.mu.Unlock()

	resp, body := env.request(t, http.MethodPost, "/api/chat/send", models.ChatSendRequest{
		Message: "Hello",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, services.FallbackChatReply, data["reply"])
	assert.Equal(t, true, data["fallback"])
}

func TestChatSendValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  models.ChatSendRequest
	}{
		{name: "empty message", req: models.ChatSendRequest{}},
		{
			name: "bad history role",
			req: models.ChatSendRequest{
				Message: "Hello",
				History: []models.ChatTurn{{Role: "narrator", Content: "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.request(t, http.MethodPost, "/api/chat/send", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
