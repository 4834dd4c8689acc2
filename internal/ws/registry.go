package ws

import "sync"

// Registry tracks which users currently hold an open websocket channel and
// gives O(1) lookup for delivery. At most one channel per user: a new
// registration silently displaces the previous one, and the displaced channel
// is left to die on its own rather than being closed here.
type Registry struct {
	mu      sync.RWMutex
	clients map[int]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[int]*Client)}
}

// Register makes client the active channel for its user, unconditionally
// overwriting any previous entry.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.UserID] = client
}

// Unregister removes the mapping, but only while client is still the active
// channel. A displaced channel's deferred cleanup must not evict its
// replacement. No-op when the user has no entry.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.clients[client.UserID]; ok && current == client {
		delete(r.clients, client.UserID)
	}
}

// SendToUser pushes a payload to the user's channel. Reports false when the
// user is offline or the frame was dropped on backpressure; neither case is
// an error for the caller, delivery degrades to store-only.
func (r *Registry) SendToUser(userID int, payload []byte) bool {
	r.mu.RLock()
	client, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return client.Enqueue(payload)
}

// Broadcast pushes a payload to every registered channel. A full queue on one
// channel does not stop delivery to the rest.
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		client.Enqueue(payload)
	}
}

// Online reports whether the user currently has a registered channel.
func (r *Registry) Online(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}
