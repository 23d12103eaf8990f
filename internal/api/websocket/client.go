package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentinelsoc/soc-core/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundBytes = 4096
)

// Client is one websocket session. The read pump handles room commands; the
// write pump drains the send buffer and keeps the connection alive.
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
}

func NewClient(id string, hub *Hub, conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer < 1 {
		sendBuffer = 64
	}
	return &Client{
		id:    id,
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]bool),
	}
}

// Register announces the client to the hub. Call before starting the pumps.
func (c *Client) Register() {
	c.hub.register <- c
}

// clientCommand is the inbound control shape:
//
//	{"action": "subscribe_site", "site_id": "dc-east"}
//	{"action": "subscribe_severity", "severity": "critical"}
type clientCommand struct {
	Action   string `json:"action"`
	SiteID   string `json:"site_id,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// ReadPump consumes control messages until the connection closes, then
// unregisters the client. Run as a goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "clientId", c.id, "error", err)
			}
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.logger.Warn("ignoring malformed websocket command", "clientId", c.id, "error", err)
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd clientCommand) {
	switch cmd.Action {
	case "subscribe_site":
		if cmd.SiteID != "" {
			c.hub.Subscribe(c, SiteRoom(cmd.SiteID))
		}
	case "unsubscribe_site":
		if cmd.SiteID != "" {
			c.hub.Unsubscribe(c, SiteRoom(cmd.SiteID))
		}
	case "subscribe_severity":
		if sev := models.EventSeverity(cmd.Severity); sev.Valid() {
			c.hub.Subscribe(c, SeverityRoom(cmd.Severity))
		}
	case "unsubscribe_severity":
		if cmd.Severity != "" {
			c.hub.Unsubscribe(c, SeverityRoom(cmd.Severity))
		}
	default:
		c.hub.logger.Warn("unknown websocket action", "clientId", c.id, "action", cmd.Action)
	}
}

// WritePump flushes the send buffer to the connection and pings on idle.
// Exits when the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
