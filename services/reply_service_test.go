package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aiqalab/redteam-console/config"
)

func newReplyServiceConfig(apiKey string) *config.Config {
	return &config.Config{
		ChatAPIKey:  apiKey,
		ChatBaseURL: "https://api.deepseek.com/v1",
		ChatModel:   "deepseek-chat",
	}
}

func TestReplyService_IsAvailable(t *testing.T) {
	t.Run("no API key configured", func(t *testing.T) {
		svc := NewReplyService(newReplyServiceConfig(""), nil)

		assert.False(t, svc.IsAvailable())
		assert.Equal(t, false, svc.GetStatus()["available"])
	})

	t.Run("API key configured", func(t *testing.T) {
		svc := NewReplyService(newReplyServiceConfig("test-key"), nil)

		assert.True(t, svc.IsAvailable())
		assert.Equal(t, true, svc.GetStatus()["available"])
	})
}

func TestReplyService_TransientFailureKeepsConfiguredAvailable(t *testing.T) {
	svc := NewReplyService(newReplyServiceConfig("test-key"), nil)

	// A failed upstream call marks the service unhealthy, but a configured
	// key stays available so a later global start is not refused with a
	// missing-credential error
	svc.updateAvailability(false, errors.New("connection refused"))

	assert.True(t, svc.IsAvailable())

	status := svc.GetStatus()
	assert.Equal(t, true, status["available"])
	assert.Equal(t, false, status["healthy"])
	assert.Equal(t, "connection refused", status["last_error"])
	assert.WithinDuration(t, time.Now(), status["last_check"].(time.Time), time.Second)
}

func TestReplyService_RecoveryMarksHealthy(t *testing.T) {
	svc := NewReplyService(newReplyServiceConfig("test-key"), nil)

	svc.updateAvailability(false, errors.New("timeout"))
	svc.updateAvailability(true, nil)

	status := svc.GetStatus()
	assert.Equal(t, true, status["healthy"])
	assert.NotContains(t, status, "last_error")
}
