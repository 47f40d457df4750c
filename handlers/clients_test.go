package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqalab/redteam-console/models"
)

func TestCreateClientValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  models.ClientRequest
	}{
		{
			name: "missing name",
			req:  models.ClientRequest{Category: "pricing", MaxMessages: 10},
		},
		{
			name: "missing category",
			req:  models.ClientRequest{Name: "Client", MaxMessages: 10},
		},
		{
			name: "zero max messages",
			req:  models.ClientRequest{Name: "Client", Category: "pricing"},
		},
		{
			name: "max messages over ceiling",
			req:  models.ClientRequest{Name: "Client", Category: "pricing", MaxMessages: 5000},
		},
		{
			name: "bad test case id",
			req: models.ClientRequest{
				Name: "Client", Category: "pricing", MaxMessages: 10,
				TestCaseIDs: []string{"not-a-uuid"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.request(t, http.MethodPost, "/api/clients/", tt.req)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t)

	id := env.createClient(t, "Bargainer", 10)

	// Read it back
	resp, body := env.request(t, http.MethodGet, "/api/clients/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Bargainer", data["name"])

	// Update
	resp, _ = env.request(t, http.MethodPut, "/api/clients/"+id, models.ClientRequest{
		Name: "Renamed", Category: "pricing", MaxMessages: 20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.request(t, http.MethodGet, "/api/clients/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "Renamed", data["name"])
	assert.Equal(t, float64(20), data["max_messages"])

	// List
	resp, body = env.request(t, http.MethodGet, "/api/clients/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)

	// Delete
	resp, _ = env.request(t, http.MethodDelete, "/api/clients/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/clients/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMissingClient(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/clients/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPut, "/api/clients/nope", models.ClientRequest{
		Name: "x", Category: "y", MaxMessages: 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.request(t, http.MethodDelete, "/api/clients/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
