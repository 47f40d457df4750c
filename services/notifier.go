package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiqalab/redteam-console/models"
)

const maxRecentNotifications = 100

// Notifier fans operator-facing notices out over the websocket hub and
// keeps a bounded in-memory backlog so the dashboard can replay recent
// notices after a reconnect.
type Notifier struct {
	mu        sync.Mutex
	recent    []models.Notification
	broadcast WebSocketBroadcaster
}

// NewNotifier creates a notifier. The broadcaster may be nil, in which case
// notices are only recorded.
func NewNotifier(broadcast WebSocketBroadcaster) *Notifier {
	return &Notifier{broadcast: broadcast}
}

// Notify records a notification and pushes it over the hub.
func (n *Notifier) Notify(level, title, message string, data map[string]interface{}) models.Notification {
	note := models.Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	n.mu.Lock()
	n.recent = append(n.recent, note)
	if len(n.recent) > maxRecentNotifications {
		n.recent = n.recent[len(n.recent)-maxRecentNotifications:]
	}
	n.mu.Unlock()

	if n.broadcast != nil {
		n.broadcast.BroadcastToAll("notification", note)
	}
	return note
}

// Recent returns the backlog, newest last.
func (n *Notifier) Recent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

// Clear empties the backlog.
func (n *Notifier) Clear() {
	n.mu.Lock()
	n.recent = nil
	n.mu.Unlock()
}
