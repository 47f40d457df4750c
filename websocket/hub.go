package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/utils"
)

// Hub manages dashboard WebSocket connections and fan-out of live test
// events (stats updates, completions, notifications). The clients map is
// mutated only by the Run goroutine but read from request handlers, so
// accesses go through the mutex.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub loop handling registrations and broadcasts
func (h *Hub) Run() {
	logger := utils.GetLogger()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			logger.Info("Dashboard connected", map[string]interface{}{
				"connection_id":     client.ID,
				"total_connections": total,
			})

			welcomeMsg := models.WSMessage{
				Type:      "connect",
				Data:      map[string]interface{}{"status": "connected", "connection_id": client.ID},
				Timestamp: time.Now(),
				ClientID:  client.ID,
			}

			select {
			case client.send <- welcomeMsg:
			default:
				close(client.send)
				h.mu.Lock()
				delete(h.clients, client)
				h.mu.Unlock()
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
			}
			total := len(h.clients)
			h.mu.Unlock()

			if ok {
				close(client.send)
				logger.Info("Dashboard disconnected", map[string]interface{}{
					"connection_id":     client.ID,
					"total_connections": total,
				})
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			recipients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				recipients = append(recipients, client)
			}
			h.mu.RUnlock()

			logger.Debug("Broadcasting event", map[string]interface{}{
				"type":       message.Type,
				"recipients": len(recipients),
			})

			for _, client := range recipients {
				select {
				case client.send <- message:
				default:
					// Send channel blocked, drop the connection
					close(client.send)
					h.mu.Lock()
					delete(h.clients, client)
					h.mu.Unlock()
					logger.Warn("Removed unresponsive dashboard connection", map[string]interface{}{
						"connection_id": client.ID,
					})
				}
			}
		}
	}
}

// BroadcastToAll sends an event to every connected dashboard
func (h *Hub) BroadcastToAll(msgType string, data interface{}) {
	message := models.WSMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
		ClientID:  "server",
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Warning: Broadcast channel is full, message dropped")
	}
}

// GetConnectedClients returns the number of connected dashboards
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// hasClient reports whether a connection is currently registered.
func (h *Hub) hasClient(client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[client]
}

// RegisterClient registers a new connection with the hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a connection from the hub
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
