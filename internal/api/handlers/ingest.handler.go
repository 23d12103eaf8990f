package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/services"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// maxBatchSize bounds one batch ingest request.
const maxBatchSize = 500

type IngestHandler struct {
	ingestor *services.Ingestor
	logger   logger.Logger
}

func NewIngestHandler(ingestor *services.Ingestor, log logger.Logger) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, logger: log}
}

// POST /api/v1/ingest
func (h *IngestHandler) IngestEvent(c *gin.Context) {
	var draft models.EventDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	event, err := h.ingestor.Ingest(c.Request.Context(), &draft)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "event": event})
}

// POST /api/v1/ingest/batch
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var drafts []*models.EventDraft
	if err := c.ShouldBindJSON(&drafts); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}
	if len(drafts) == 0 {
		respondError(c, models.NewValidationError("", "empty batch"))
		return
	}
	if len(drafts) > maxBatchSize {
		respondError(c, models.NewValidationError("", "batch exceeds maximum size"))
		return
	}

	result := h.ingestor.IngestBatch(c.Request.Context(), drafts)

	ids := make([]string, 0, len(result.Created))
	for _, e := range result.Created {
		ids = append(ids, e.ID)
	}

	status := http.StatusCreated
	bodyStatus := "success"
	if len(result.Created) == 0 {
		status = http.StatusBadRequest
		bodyStatus = "error"
	} else if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}

	c.JSON(status, gin.H{
		"status":   bodyStatus,
		"created":  len(result.Created),
		"ids":      ids,
		"rejected": len(result.Errors),
		"errors":   result.Errors,
	})
}
