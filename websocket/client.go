package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client represents one browser dashboard connection. The dashboard only
// listens; the few inbound message types are connection housekeeping.
type Client struct {
	ID       string
	conn     *websocket.Conn
	send     chan models.WSMessage
	hub      *Hub
	LastSeen time.Time
}

// NewClient creates a new dashboard connection
func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:       uuid.New().String(),
		conn:     conn,
		send:     make(chan models.WSMessage, 256),
		hub:      hub,
		LastSeen: time.Now(),
	}
}

// ReadPump pumps messages from the connection to the hub
func (c *Client) ReadPump() {
	logger := utils.GetLogger()

	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.LastSeen = time.Now()
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", err, map[string]interface{}{
					"connection_id": c.ID,
				})
			}
			break
		}

		var message models.WSMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			logger.Error("Failed to parse WebSocket message", err, map[string]interface{}{
				"connection_id": c.ID,
				"message":       string(messageBytes),
			})
			continue
		}

		message.ClientID = c.ID
		message.Timestamp = time.Now()
		c.LastSeen = time.Now()

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the connection
func (c *Client) WritePump() {
	logger := utils.GetLogger()
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			messageBytes, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal WebSocket message", err, map[string]interface{}{
					"connection_id": c.ID,
					"message_type":  message.Type,
				})
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
				logger.Error("Failed to write WebSocket message", err, map[string]interface{}{
					"connection_id": c.ID,
				})
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes the inbound housekeeping messages
func (c *Client) handleMessage(message models.WSMessage) {
	logger := utils.GetLogger()

	switch message.Type {
	case "heartbeat":
		response := models.WSMessage{
			Type:      "heartbeat",
			Data:      map[string]interface{}{"status": "pong"},
			Timestamp: time.Now(),
			ClientID:  c.ID,
		}

		select {
		case c.send <- response:
		default:
			logger.Warn("Failed to send heartbeat response", map[string]interface{}{
				"connection_id": c.ID,
			})
		}

	case "disconnect":
		logger.Info("Dashboard requested disconnect", map[string]interface{}{
			"connection_id": c.ID,
		})
		c.hub.UnregisterClient(c)

	default:
		logger.Debug("Ignoring dashboard message", map[string]interface{}{
			"connection_id": c.ID,
			"message_type":  message.Type,
		})
	}
}
