package socket

import (
	"encoding/json"
	"sync"

	"notesync/internal/document/model"
	"notesync/pkg/logger"
)

// Hub fans note changes out to the websocket clients of the note's owner.
// Each owner has a room; a change never leaves its owner's room.
type Hub struct {
	rooms      map[string]map[*Client]bool
	Broadcast  chan model.Change
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan model.Change),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.rooms[client.Owner] == nil {
				h.rooms[client.Owner] = make(map[*Client]bool)
			}
			h.rooms[client.Owner][client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Client joined room %s", client.Owner)

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case change := <-h.Broadcast:
			payload, err := json.Marshal(change)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling change: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[change.Owner] {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client of %s has a full send buffer. Unregistering.", client.Owner)
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.Owner]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.rooms, client.Owner)
		logger.Sugar.Debugf("Closed empty room: %s", client.Owner)
	}
}

// Notify queues change for delivery. It returns immediately once the hub
// has stopped.
func (h *Hub) Notify(change model.Change) {
	select {
	case h.Broadcast <- change:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Clients reports how many connections owner currently has.
func (h *Hub) Clients(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[owner])
}
