package main

import (
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqalab/redteam-console/config"
	"github.com/aiqalab/redteam-console/utils"
)

// TestCreateFiberApp tests the Fiber app creation
func TestCreateFiberApp(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		Port:        "8080",
	}
	logger := utils.GetLogger()

	app := createFiberApp(cfg, logger)

	assert.NotNil(t, app)
	assert.Equal(t, "Red Team Console v1.0.0", app.Config().AppName)
}

// TestHealthCheckHandler tests the health check endpoint
func TestHealthCheckHandler(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		Port:        "8080",
	}

	app := fiber.New()
	app.Get("/health", healthCheckHandler(cfg))

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Check that response contains expected fields
	assert.Contains(t, string(body), "success")
	assert.Contains(t, string(body), "healthy")
	assert.Contains(t, string(body), "version")
	assert.Contains(t, string(body), "environment")
}

// TestSetupMiddleware tests middleware setup
func TestSetupMiddleware(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		Port:        "8080",
		FrontendURL: "http://localhost:3000",
	}

	app := fiber.New()
	setupMiddleware(app, cfg)

	// Test that middleware is properly configured by making a request
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"test": "ok"})
	})

	req, err := http.NewRequest("GET", "/test", nil)
	require.NoError(t, err)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Check correlation ID headers are present
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// TestErrorHandler tests the custom error handler
func TestErrorHandler(t *testing.T) {
	logger := utils.GetLogger()
	errorHandler := createErrorHandler(logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// Create a route that returns an error
	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "Test error")
	})

	req, err := http.NewRequest("GET", "/error", nil)
	require.NoError(t, err)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "error")
	assert.Contains(t, string(body), "REQUEST_ERROR")
	assert.Contains(t, string(body), "trace_id")
}
