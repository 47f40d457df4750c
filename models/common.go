package models

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// WSMessage is the envelope for all messages pushed over the WebSocket hub.
type WSMessage struct {
	Type      string      `json:"type" validate:"required,oneof=connect disconnect heartbeat client_message client_completed all_tests_complete stats_update notification"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	ClientID  string      `json:"client_id" validate:"required"`
}

// WSClient represents a WebSocket client connection.
type WSClient struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan WSMessage
	UserID   string
	LastSeen time.Time
}

// Notification is a user-facing event surfaced by the runtime: a client
// reaching its limit, the terminal all-complete event, a persistence failure.
type Notification struct {
	ID        string                 `json:"id"`
	Level     string                 `json:"level"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SystemPromptRequest updates the agent-under-test framing.
type SystemPromptRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=8000"`
}

// DashboardStats aggregates the numbers shown on the dashboard header and
// the heatmap panels.
type DashboardStats struct {
	TotalClients      int            `json:"total_clients"`
	ActiveClients     int            `json:"active_clients"`
	TotalTestCases    int            `json:"total_test_cases"`
	TotalMessagesSent int            `json:"total_messages_sent"`
	GlobalMode        string         `json:"global_mode"`
	APIConfigured     bool           `json:"api_configured"`
	Clients           []ClientStatus `json:"clients"`
	AttackTypes       []AttackStat   `json:"attack_types"`
}

// AttackStat is a per-attack-type slice of the heatmap. RiskScore is a
// display-only placeholder, not a measured value.
type AttackStat struct {
	AttackType string  `json:"attack_type"`
	Category   string  `json:"category"`
	CaseCount  int     `json:"case_count"`
	RiskScore  float64 `json:"risk_score"`
}
