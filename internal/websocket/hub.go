package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pool-ladder/internal/domain"
)

// Message types
const (
	MessageTypeStandingsUpdate = "standings_update"
	MessageTypeChallengeEvent  = "challenge_event"
	MessageTypeSubscribe       = "subscribe"
	MessageTypeUnsubscribe     = "unsubscribe"
	MessageTypeWatchPlayer     = "watch_player"
	MessageTypeUnwatchPlayer   = "unwatch_player"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Bracket   string      `json:"ladder_name,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// StandingsUpdate contains bracket standings data for broadcast
type StandingsUpdate struct {
	Bracket      string                 `json:"ladder_name"`
	Entries      []domain.StandingEntry `json:"entries"`
	TotalPlayers int                    `json:"total_players"`
}

// ChallengeEvent notifies subscribers of a challenge state transition
type ChallengeEvent struct {
	Event     string            `json:"event"`
	Challenge *domain.Challenge `json:"challenge"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by bracket
	clients map[string]map[*Client]bool

	// Clients watching a player's challenges, keyed by player id
	watchers map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Inbound messages from clients
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	// Player watch and unwatch requests
	watch   chan *watchRequest
	unwatch chan *watchRequest

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client  *Client
	bracket string
}

type watchRequest struct {
	client   *Client
	playerID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		watchers:    make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		watch:       make(chan *watchRequest, 64),
		unwatch:     make(chan *watchRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				// Remove from all bracket subscriptions and player watches
				for bracket, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, bracket)
						}
					}
				}
				for playerID, watchers := range h.watchers {
					if _, ok := watchers[client]; ok {
						delete(watchers, client)
						if len(watchers) == 0 {
							delete(h.watchers, playerID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.bracket]; !ok {
				h.clients[req.bracket] = make(map[*Client]bool)
			}
			h.clients[req.bracket][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "ladder_name", req.bracket)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.bracket]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.bracket)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "ladder_name", req.bracket)

		case req := <-h.watch:
			h.mu.Lock()
			if _, ok := h.watchers[req.playerID]; !ok {
				h.watchers[req.playerID] = make(map[*Client]bool)
			}
			h.watchers[req.playerID][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client watching player", "client_id", req.client.id, "player_id", req.playerID)

		case req := <-h.unwatch:
			h.mu.Lock()
			if watchers, ok := h.watchers[req.playerID]; ok {
				delete(watchers, req.client)
				if len(watchers) == 0 {
					delete(h.watchers, req.playerID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client stopped watching player", "client_id", req.client.id, "player_id", req.playerID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to all subscribed clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	// If message names a bracket, only send to subscribed clients. Challenge
	// events additionally reach clients watching either participant.
	if message.Bracket != "" {
		recipients := make(map[*Client]bool)
		for client := range h.clients[message.Bracket] {
			recipients[client] = true
		}
		if ev, ok := message.Data.(ChallengeEvent); ok && ev.Challenge != nil {
			for client := range h.watchers[ev.Challenge.ChallengerID] {
				recipients[client] = true
			}
			for client := range h.watchers[ev.Challenge.DefenderID] {
				recipients[client] = true
			}
		}
		for client := range recipients {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full, skip
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	} else {
		// Broadcast to all clients
		for client := range h.allClients {
			select {
			case client.send <- data:
			default:
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	}
}

// BroadcastStandings sends a standings update to all subscribed clients
func (h *Hub) BroadcastStandings(bracket domain.Bracket, entries []domain.StandingEntry) {
	message := &Message{
		Type:    MessageTypeStandingsUpdate,
		Bracket: string(bracket),
		Data: StandingsUpdate{
			Bracket:      string(bracket),
			Entries:      entries,
			TotalPlayers: len(entries),
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastChallengeEvent sends a challenge transition to bracket subscribers
func (h *Hub) BroadcastChallengeEvent(event string, challenge *domain.Challenge) {
	message := &Message{
		Type:    MessageTypeChallengeEvent,
		Bracket: string(challenge.Bracket),
		Data: ChallengeEvent{
			Event:     event,
			Challenge: challenge,
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a bracket subscription
func (h *Hub) Subscribe(client *Client, bracket string) {
	h.subscribe <- &subscriptionRequest{
		client:  client,
		bracket: bracket,
	}
}

// Unsubscribe removes a client from a bracket subscription
func (h *Hub) Unsubscribe(client *Client, bracket string) {
	h.unsubscribe <- &subscriptionRequest{
		client:  client,
		bracket: bracket,
	}
}

// WatchPlayer subscribes a client to challenge events involving a player,
// whichever bracket they happen in
func (h *Hub) WatchPlayer(client *Client, playerID string) {
	h.watch <- &watchRequest{client: client, playerID: playerID}
}

// UnwatchPlayer removes a client's watch on a player
func (h *Hub) UnwatchPlayer(client *Client, playerID string) {
	h.unwatch <- &watchRequest{client: client, playerID: playerID}
}

// GetSubscriberCount returns the number of subscribers for a bracket
func (h *Hub) GetSubscriberCount(bracket string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[bracket]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
