// Package sse provides per-user Server-Sent Events broadcasting for decision-fitness.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// EventDashboardUpdated tells a client its journal changed and derived
// views should be refetched.
const EventDashboardUpdated = "dashboard_updated"

// EventCheckInDue tells a client a decision reached its reflection day.
const EventCheckInDue = "check_in_due"

// Event is the payload written to subscribers.
type Event struct {
	Type       string `json:"type"`
	DecisionID string `json:"decisionId,omitempty"`
}

// Client represents a connected SSE client.
type Client struct {
	ID      string
	UserID  string
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	mu      sync.Mutex
	once    sync.Once
}

// send writes one data frame. Writes are serialized per client and
// dropped once the client is closed.
func (c *Client) send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.Done:
		return nil
	default:
	}
	if _, err := c.Writer.Write(message); err != nil {
		return err
	}
	c.Flusher.Flush()
	return nil
}

// Broadcaster manages SSE client connections grouped by user.
type Broadcaster struct {
	clients map[string]map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]map[string]*Client),
	}
}

// AddClient registers a connection for userID.
func (b *Broadcaster) AddClient(userID string, w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		UserID:  userID,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	if b.clients[userID] == nil {
		b.clients[userID] = make(map[string]*Client)
	}
	b.clients[userID][id] = client
	clientCount := len(b.clients[userID])
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Str("userId", userID).
		Int("userClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection. It is safe to call more than once.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	if group, ok := b.clients[client.UserID]; ok {
		delete(group, client.ID)
		if len(group) == 0 {
			delete(b.clients, client.UserID)
		}
	}
	b.mu.Unlock()

	client.mu.Lock()
	client.once.Do(func() { close(client.Done) })
	client.mu.Unlock()

	log.Debug().
		Str("clientId", client.ID).
		Str("userId", client.UserID).
		Msg("SSE client disconnected")
}

// Publish sends event to every connection of userID.
func (b *Broadcaster) Publish(userID string, event Event) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE data")
		return
	}
	message := []byte(fmt.Sprintf("data: %s\n\n", jsonData))

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients[userID]))
	for _, client := range b.clients[userID] {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	var deadClients []*Client
	for _, client := range clients {
		if err := client.send(message); err != nil {
			log.Debug().
				Str("clientId", client.ID).
				Err(err).
				Msg("Failed to write to SSE client, marking for removal")
			deadClients = append(deadClients, client)
		}
	}

	for _, client := range deadClients {
		b.RemoveClient(client)
	}
}

// DashboardUpdated publishes EventDashboardUpdated to userID.
func (b *Broadcaster) DashboardUpdated(userID string) {
	b.Publish(userID, Event{Type: EventDashboardUpdated})
}

// CheckInDue publishes EventCheckInDue for decisionID to userID.
func (b *Broadcaster) CheckInDue(userID, decisionID string) {
	b.Publish(userID, Event{Type: EventCheckInDue, DecisionID: decisionID})
}

// Users returns the users with at least one open connection.
func (b *Broadcaster) Users() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	users := make([]string, 0, len(b.clients))
	for userID, group := range b.clients {
		if len(group) > 0 {
			users = append(users, userID)
		}
	}
	return users
}

// ClientCount returns the number of connected clients across all users.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, group := range b.clients {
		n += len(group)
	}
	return n
}

// UserClientCount returns the number of connections open for userID.
func (b *Broadcaster) UserClientCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[userID])
}

// HandleSSE streams events for userID until the request context ends.
func (b *Broadcaster) HandleSSE(userID string, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(userID, w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	if err := client.send([]byte(fmt.Sprintf("data: {\"type\":\"connected\",\"clientId\":%q}\n\n", client.ID))); err != nil {
		return
	}

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
