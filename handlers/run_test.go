package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAllWithoutClients(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/run/start", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "NO_CLIENTS", errInfo["code"])
}

func TestStartAllWithoutAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.createClient(t, "Client", 5)
	env.replies.mu.Lock()
	env.replies.available = false
	env.replies.mu.Unlock()

	resp, body := env.request(t, http.MethodPost, "/api/run/start", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "API_KEY_NOT_CONFIGURED", errInfo["code"])
}

func TestRunStatusReflectsClients(t *testing.T) {
	env := newTestEnv(t)
	env.createClient(t, "Client", 5)

	resp, body := env.request(t, http.MethodGet, "/api/run/status", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "off", data["mode"])
	assert.Len(t, data["clients"].([]interface{}), 1)
}

func TestManualAdvanceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.createClient(t, "Client", 1)

	resp, body := env.request(t, http.MethodPost, "/api/clients/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["outcome"])

	// Transcript holds the exchange
	resp, body = env.request(t, http.MethodGet, "/api/clients/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 2)

	// Second advance hits the ceiling
	resp, body = env.request(t, http.MethodPost, "/api/clients/"+id+"/advance", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "LIMIT_REACHED", errInfo["code"])
}

func TestAdvanceUnknownClient(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPost, "/api/clients/nope/advance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResetEndpointClearsTranscript(t *testing.T) {
	env := newTestEnv(t)
	id := env.createClient(t, "Client", 5)

	env.request(t, http.MethodPost, "/api/clients/"+id+"/advance", nil)

	resp, _ := env.request(t, http.MethodPost, "/api/clients/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := env.request(t, http.MethodGet, "/api/clients/"+id+"/messages", nil)
	assert.Empty(t, body["data"])
}

func TestGlobalRunCompletesOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createClient(t, "Client", 2)

	resp, _ := env.request(t, http.MethodPost, "/api/run/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := env.request(t, http.MethodGet, "/api/run/status", nil)
		data := body["data"].(map[string]interface{})
		return data["mode"] == "off" && data["total_messages"] == float64(2)
	}, 2*time.Second, 20*time.Millisecond)

	// Conversations were persisted along the way
	_, body := env.request(t, http.MethodGet, "/api/conversations", nil)
	assert.Len(t, body["data"].([]interface{}), 2)
}

func TestStopEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createClient(t, "Client", 1000)

	resp, _ := env.request(t, http.MethodPost, "/api/run/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPost, "/api/run/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := env.request(t, http.MethodGet, "/api/run/status", nil)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "off", data["mode"])
}
