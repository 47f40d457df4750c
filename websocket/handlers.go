package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/aiqalab/redteam-console/utils"
)

// Global hub instance
var GlobalHub *Hub

// InitializeHub initializes the global WebSocket hub
func InitializeHub() {
	GlobalHub = NewHub()
	go GlobalHub.Run()

	utils.GetLogger().Info("WebSocket hub initialized and started", map[string]interface{}{
		"status": "running",
	})
}

// WebSocketUpgrade handles WebSocket upgrade requests
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}

	return utils.ErrorResponse(c, fiber.StatusUpgradeRequired, "WEBSOCKET_REQUIRED", "WebSocket upgrade required", nil)
}

// WebSocketHandler handles an upgraded dashboard connection
func WebSocketHandler(c *websocket.Conn) {
	logger := utils.GetLogger()

	client := NewClient(c, GlobalHub)
	GlobalHub.RegisterClient(client)

	logger.Info("New WebSocket connection established", map[string]interface{}{
		"connection_id": client.ID,
		"remote_addr":   c.RemoteAddr().String(),
	})

	go client.WritePump()
	client.ReadPump() // Blocks until the connection closes
}

// GetWebSocketStats returns statistics about dashboard connections
func GetWebSocketStats() map[string]interface{} {
	if GlobalHub == nil {
		return map[string]interface{}{
			"status":            "not_initialized",
			"connected_clients": 0,
		}
	}

	return map[string]interface{}{
		"status":            "running",
		"connected_clients": GlobalHub.GetConnectedClients(),
	}
}
