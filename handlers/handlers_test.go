package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/aiqalab/redteam-console/config"
	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/store"
)

// stubReplies is a minimal scriptable ReplyProvider for handler tests.
type stubReplies struct {
	mu        sync.Mutex
	available bool
	reply     string
	err       error
}

func (s *stubReplies) Reply(ctx context.Context, systemPrompt string, history []models.ChatTurn, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply, s.err
}

func (s *stubReplies) Paraphrase(ctx context.Context, tc models.TestCase) string {
	return tc.TestPrompt
}

func (s *stubReplies) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// testEnv wires a real store and coordinator behind a Fiber app.
type testEnv struct {
	app         *fiber.App
	store       *store.Store
	replies     *stubReplies
	coordinator *services.GlobalCoordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		TickInterval: 5 * time.Millisecond,
		ThinkDelay:   0,
		ReplyTimeout: time.Second,
	}
	replies := &stubReplies{available: true, reply: "service reply"}
	notifier := services.NewNotifier(nil)
	prompts := services.NewSystemPromptStore(config.DefaultSystemPrompt)
	coordinator := services.NewGlobalCoordinator(cfg, replies, st, nil, notifier, prompts.Get, nil)
	clientService := services.NewClientService(st, coordinator, nil)
	testCaseService := services.NewTestCaseService(st, nil)
	documentService := services.NewDocumentService(st, nil)
	statsService := services.NewStatsService(st, coordinator, replies, nil)

	app := fiber.New()
	api := app.Group("/api")

	clientHandler := NewClientHandler(clientService)
	runHandler := NewRunHandler(coordinator)
	testCaseHandler := NewTestCaseHandler(testCaseService)
	chatHandler := NewChatHandler(replies, st, prompts.Get)
	conversationHandler := NewConversationHandler(st)
	documentHandler := NewDocumentHandler(documentService)
	systemPromptHandler := NewSystemPromptHandler(prompts)
	statsHandler := NewStatsHandler(statsService)
	notificationHandler := NewNotificationHandler(notifier)

	clients := api.Group("/clients")
	clients.Get("/", clientHandler.ListClients)
	clients.Post("/", clientHandler.CreateClient)
	clients.Get("/:id", clientHandler.GetClient)
	clients.Put("/:id", clientHandler.UpdateClient)
	clients.Delete("/:id", clientHandler.DeleteClient)
	clients.Post("/:id/advance", runHandler.AdvanceClient)
	clients.Post("/:id/start", runHandler.StartClient)
	clients.Post("/:id/stop", runHandler.StopClient)
	clients.Post("/:id/reset", runHandler.ResetClient)
	clients.Get("/:id/messages", runHandler.GetMessages)

	run := api.Group("/run")
	run.Post("/start", runHandler.StartAll)
	run.Post("/stop", runHandler.StopAll)
	run.Post("/clear", runHandler.ClearAll)
	run.Get("/status", runHandler.Status)

	testcases := api.Group("/testcases")
	testcases.Get("/", testCaseHandler.ListTestCases)
	testcases.Get("/categories", testCaseHandler.GetCategories)
	testcases.Post("/import", testCaseHandler.ImportTestCases)
	testcases.Get("/template", testCaseHandler.DownloadTemplate)
	testcases.Get("/export", testCaseHandler.ExportTestCases)

	api.Post("/chat/send", chatHandler.SendMessage)
	api.Get("/conversations", conversationHandler.ListConversations)

	documents := api.Group("/documents")
	documents.Get("/", documentHandler.ListDocuments)
	documents.Post("/", documentHandler.CreateDocument)
	documents.Delete("/:id", documentHandler.DeleteDocument)

	api.Get("/system-prompt", systemPromptHandler.GetSystemPrompt)
	api.Put("/system-prompt", systemPromptHandler.UpdateSystemPrompt)
	api.Get("/stats", statsHandler.GetStats)
	api.Get("/notifications", notificationHandler.ListNotifications)

	return &testEnv{app: app, store: st, replies: replies, coordinator: coordinator}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func (e *testEnv) createClient(t *testing.T, name string, maxMessages int) string {
	t.Helper()

	resp, body := e.request(t, http.MethodPost, "/api/clients/", models.ClientRequest{
		Name:        name,
		Category:    "pricing",
		MaxMessages: maxMessages,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	return data["id"].(string)
}
