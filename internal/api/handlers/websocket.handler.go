package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/sentinelsoc/soc-core/internal/api/websocket"
	"github.com/sentinelsoc/soc-core/internal/config"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

type WebSocketHandler struct {
	hub        *websocket.Hub
	upgrader   gorilla.Upgrader
	sendBuffer int
	logger     logger.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, cfg config.WebSocketConfig, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// TODO: tighten in prod (check Origin against cors.allowed_origins)
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: cfg.SendBufferSize,
		logger:     log,
	}
}

// GET /api/v1/ws - upgrade and hand the connection to the hub. The client
// lands in the global room and manages site/severity rooms over the socket.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(generateClientID(), h.hub, conn, h.sendBuffer)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}

// generateClientID returns a random 16-byte hex id.
func generateClientID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
