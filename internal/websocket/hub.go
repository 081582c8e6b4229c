// internal/websocket/hub.go
// WebSocket hub manages client connections and broadcasts
// viewcache.ChangeNotification updates to subscribed tournaments.

package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"tournament-engine/internal/viewcache"
)

// Hub maintains active websocket connections and broadcasts view
// updates
type Hub struct {
	// Registered clients by tournament ID
	tournaments map[string]map[*Client]bool

	// Registered clients by participant ID
	participants map[string]*Client

	// Register client
	register chan *Client

	// Unregister client
	unregister chan *Client

	// Broadcast messages to tournament
	broadcast chan *Message

	logger *log.Logger

	// Mutex for concurrent access
	mu sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	Type          string      `json:"type"`
	TournamentID  string      `json:"tournament_id,omitempty"`
	ParticipantID string      `json:"participant_id,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		tournaments:  make(map[string]map[*Client]bool),
		participants: make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan *Message, 256),
		logger:       logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient adds a new client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.participantID != "" {
		if existing, exists := h.participants[client.participantID]; exists {
			existing.close()
			h.removeClient(existing)
		}
		h.participants[client.participantID] = client
	}

	for _, tournamentID := range client.tournaments {
		if h.tournaments[tournamentID] == nil {
			h.tournaments[tournamentID] = make(map[*Client]bool)
		}
		h.tournaments[tournamentID][client] = true
	}

	h.logger.Printf("Client registered: %s (tournaments: %v)", client.participantID, client.tournaments)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
	client.close()

	h.logger.Printf("Client unregistered: %s", client.participantID)
}

// removeClient removes client from all registrations
func (h *Hub) removeClient(client *Client) {
	if client.participantID != "" {
		delete(h.participants, client.participantID)
	}

	for _, tournamentID := range client.tournaments {
		if clients, exists := h.tournaments[tournamentID]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.tournaments, tournamentID)
			}
		}
	}
}

// broadcastMessage sends a message to relevant clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Printf("Failed to marshal message: %v", err)
		return
	}

	if message.TournamentID != "" {
		if clients, exists := h.tournaments[message.TournamentID]; exists {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.removeClient(client)
					client.close()
				}
			}
		}
	}

	if message.ParticipantID != "" {
		if client, exists := h.participants[message.ParticipantID]; exists {
			select {
			case client.send <- data:
			default:
				h.removeClient(client)
				client.close()
			}
		}
	}
}

// BroadcastViewChange fans a viewcache.ChangeNotification out to every
// client subscribed to its tournament, the way the teacher's hub
// broadcast tournament/match updates.
func (h *Hub) BroadcastViewChange(tournamentID string, notification viewcache.ChangeNotification) {
	message := &Message{
		Type:         MessageViewChange,
		TournamentID: tournamentID,
		Data: map[string]interface{}{
			"view":          notification.View,
			"updated_paths": notification.UpdatedPaths,
		},
	}
	h.broadcast <- message
}

// SendToParticipant sends a message to a specific participant
func (h *Hub) SendToParticipant(participantID string, messageType string, data interface{}) {
	message := &Message{
		Type:          messageType,
		ParticipantID: participantID,
		Data:          data,
	}
	h.broadcast <- message
}

// SubscribeToTournament subscribes a client to tournament updates
func (h *Hub) SubscribeToTournament(client *Client, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.tournaments = append(client.tournaments, tournamentID)

	if h.tournaments[tournamentID] == nil {
		h.tournaments[tournamentID] = make(map[*Client]bool)
	}
	h.tournaments[tournamentID][client] = true

	h.logger.Printf("Client %s subscribed to tournament %s", client.participantID, tournamentID)
}

// UnsubscribeFromTournament unsubscribes a client from tournament updates
func (h *Hub) UnsubscribeFromTournament(client *Client, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, id := range client.tournaments {
		if id == tournamentID {
			client.tournaments = append(client.tournaments[:i], client.tournaments[i+1:]...)
			break
		}
	}

	if clients, exists := h.tournaments[tournamentID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.tournaments, tournamentID)
		}
	}

	h.logger.Printf("Client %s unsubscribed from tournament %s", client.participantID, tournamentID)
}
