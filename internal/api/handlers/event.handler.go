package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

type EventHandler struct {
	events storage.EventStore
	logger logger.Logger
}

func NewEventHandler(events storage.EventStore, log logger.Logger) *EventHandler {
	return &EventHandler{events: events, logger: log}
}

// GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "event": event})
}

type updateStatusRequest struct {
	Status     string  `json:"status"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// PATCH /api/v1/events/:id/status
//
// Status and assignment are the only mutable event fields; everything else
// is immutable once ingested.
func (h *EventHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	status := models.EventStatus(req.Status)
	if !status.Valid() {
		respondError(c, models.NewValidationError("status", "unknown status: "+req.Status))
		return
	}

	event, err := h.events.UpdateStatus(c.Request.Context(), c.Param("id"), status, req.AssignedTo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "event": event})
}
