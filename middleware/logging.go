package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aiqalab/redteam-console/utils"
)

// LoggingConfig holds logging middleware configuration
type LoggingConfig struct {
	Logger    *utils.Logger
	SkipPaths []string
}

// DefaultLoggingConfig returns default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Logger:    utils.GetLogger(),
		SkipPaths: []string{"/health"},
	}
}

// RequestLogging creates a request logging middleware with correlation IDs
func RequestLogging(config ...LoggingConfig) fiber.Handler {
	cfg := DefaultLoggingConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if shouldSkipPath(c.Path(), cfg.SkipPaths) {
			return c.Next()
		}

		traceID := c.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		utils.SetTraceID(c, traceID)
		c.Set("X-Trace-ID", traceID)

		requestID := uuid.New().String()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)

		startTime := time.Now()
		err := c.Next()
		duration := time.Since(startTime)

		logResponse(c, cfg, traceID, requestID, duration, err)

		return err
	}
}

// CorrelationID creates a middleware that ensures correlation IDs are present
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("X-Trace-ID", traceID)

		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("X-Request-ID", requestID)

		utils.SetTraceID(c, traceID)
		c.Locals("request_id", requestID)

		return c.Next()
	}
}

// logResponse logs response details
func logResponse(c *fiber.Ctx, cfg LoggingConfig, traceID, requestID string, duration time.Duration, err error) {
	statusCode := c.Response().StatusCode()

	context := map[string]interface{}{
		"method":      c.Method(),
		"path":        c.Path(),
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"ip":          c.IP(),
		"request_id":  requestID,
	}
	if len(c.Queries()) > 0 {
		context["query_params"] = c.Queries()
	}

	logger := cfg.Logger.WithTraceID(traceID).WithSource("http")

	if err != nil {
		logger.Error("Request completed with error", err, context)
	} else if statusCode >= 500 {
		logger.Error("Request completed with server error", nil, context)
	} else if statusCode >= 400 {
		logger.Warn("Request completed with client error", context)
	} else {
		logger.Info("Request completed successfully", context)
	}
}

// shouldSkipPath checks if a path should be skipped from logging
func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}
