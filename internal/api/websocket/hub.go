package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// Room names. Every client is in the global room for its whole session;
// site and severity rooms are joined and left by client request.
const RoomGlobal = "global"

func SiteRoom(siteID string) string    { return "site_" + siteID }
func SeverityRoom(level string) string { return "severity_" + level }

// Hub fans events and alerts out to websocket clients grouped into rooms.
// All room membership changes go through the register/unregister/subscribe
// channels processed by Run, so the maps are only touched from one
// goroutine plus read-locked broadcast paths.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription

	logger logger.Logger
	mu     sync.RWMutex
}

type subscription struct {
	client *Client
	room   string
}

// Message is the wire envelope for every hub broadcast.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		logger:      log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.joinLocked(client, RoomGlobal)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Inc()
			h.logger.Info("websocket client connected", "clientId", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropLocked(client)
				metrics.ActiveWebSocketClients.Dec()
			}
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", "clientId", client.id)

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.clients[sub.client] {
				h.joinLocked(sub.client, sub.room)
			}
			h.mu.Unlock()

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			h.leaveLocked(sub.client, sub.room)
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// Subscribe adds the client to a room. No-op for unknown clients.
func (h *Hub) Subscribe(c *Client, room string) {
	h.subscribe <- subscription{client: c, room: room}
}

func (h *Hub) Unsubscribe(c *Client, room string) {
	h.unsubscribe <- subscription{client: c, room: room}
}

// PublishEvent delivers a new event to the global room and, when the event
// carries a site, to that site's room. Critical and high events additionally
// raise an alert in both the critical and high severity rooms; watchers of
// either level care about both.
func (h *Hub) PublishEvent(event *models.Event) {
	payload, ok := h.marshal(Message{Type: "new_event", Data: event, Timestamp: time.Now().UTC()})
	if !ok {
		return
	}
	h.broadcastRoom(RoomGlobal, payload)
	if event.SiteID != "" {
		h.broadcastRoom(SiteRoom(event.SiteID), payload)
	}

	if event.Severity == models.SeverityCritical || event.Severity == models.SeverityHigh {
		alert, ok := h.marshal(Message{Type: "event_alert", Data: event, Timestamp: time.Now().UTC()})
		if !ok {
			return
		}
		h.broadcastRoom(SeverityRoom(string(models.SeverityCritical)), alert)
		h.broadcastRoom(SeverityRoom(string(models.SeverityHigh)), alert)
	}
}

// PublishAlert delivers a rule or playbook notification to the global room.
func (h *Hub) PublishAlert(payload interface{}) {
	b, ok := h.marshal(Message{Type: "alert", Data: payload, Timestamp: time.Now().UTC()})
	if !ok {
		return
	}
	h.broadcastRoom(RoomGlobal, b)
}

func (h *Hub) marshal(m Message) ([]byte, bool) {
	b, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "type", m.Type, "error", err)
		return nil, false
	}
	return b, true
}

// broadcastRoom sends to every client in the room. A client whose send
// buffer is full is dropped rather than allowed to stall the hub.
func (h *Hub) broadcastRoom(room string, payload []byte) {
	var stalled []*Client

	h.mu.RLock()
	members := h.rooms[room]
	if len(members) > 0 {
		metrics.BroadcastsSent.WithLabelValues(roomLabel(room)).Inc()
	}
	for client := range members {
		select {
		case client.send <- payload:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	if len(stalled) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range stalled {
		if h.clients[client] {
			h.dropLocked(client)
			metrics.ActiveWebSocketClients.Dec()
			h.logger.Warn("dropping slow websocket client", "clientId", client.id, "room", room)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	c.rooms[room] = true
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) dropLocked(c *Client) {
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

// roomLabel collapses per-site rooms into one metric label to keep
// cardinality bounded.
func roomLabel(room string) string {
	if room == RoomGlobal {
		return RoomGlobal
	}
	if len(room) > 5 && room[:5] == "site_" {
		return "site"
	}
	return room
}
