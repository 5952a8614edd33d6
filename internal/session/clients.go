package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client is a connected control surface, such as a websocket state feed.
type Client struct {
	ID           string    `json:"id"`
	UserAgent    string    `json:"userAgent"`
	RemoteAddr   string    `json:"remoteAddr"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// ClientManager tracks connected clients
type ClientManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewClientManager creates a new client manager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*Client),
	}
}

// Register records a new client and returns it
func (cm *ClientManager) Register(userAgent, remoteAddr string) Client {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	now := time.Now()
	c := &Client{
		ID:           uuid.NewString(),
		UserAgent:    userAgent,
		RemoteAddr:   remoteAddr,
		ConnectedAt:  now,
		LastActivity: now,
	}
	cm.clients[c.ID] = c
	return *c
}

// Touch updates the last activity time for a client
func (cm *ClientManager) Touch(id string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if c, ok := cm.clients[id]; ok {
		c.LastActivity = time.Now()
	}
}

// Remove forgets a client
func (cm *ClientManager) Remove(id string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.clients, id)
}

// List returns connected clients, oldest connection first
func (cm *ClientManager) List() []Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	out := make([]Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Count returns the number of connected clients
func (cm *ClientManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}
