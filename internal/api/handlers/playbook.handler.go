package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/services"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

type PlaybookHandler struct {
	playbooks storage.PlaybookStore
	executor  *services.PlaybookExecutor
	logger    logger.Logger
}

func NewPlaybookHandler(playbooks storage.PlaybookStore, executor *services.PlaybookExecutor, log logger.Logger) *PlaybookHandler {
	return &PlaybookHandler{playbooks: playbooks, executor: executor, logger: log}
}

type playbookRequest struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Trigger       string                 `json:"trigger"`
	TriggerConfig map[string]interface{} `json:"trigger_config,omitempty"`
	Category      string                 `json:"category"`
	Steps         []models.StepDef       `json:"steps,omitempty"`
}

// POST /api/v1/playbooks
//
// New playbooks always start as drafts; activation is an explicit toggle.
func (h *PlaybookHandler) CreatePlaybook(c *gin.Context) {
	var req playbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	now := time.Now().UTC()
	playbook := &models.Playbook{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Status:        models.PlaybookDraft,
		Trigger:       models.PlaybookTrigger(req.Trigger),
		TriggerConfig: req.TriggerConfig,
		Category:      models.PlaybookCategory(req.Category),
		Steps:         req.Steps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Trigger == "" {
		playbook.Trigger = models.TriggerManual
	}

	if err := playbook.Validate(); err != nil {
		respondError(c, err)
		return
	}
	playbook.SortSteps()

	if err := h.playbooks.InsertPlaybook(c.Request.Context(), playbook); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("playbook created", "playbook", playbook.ID, "name", playbook.Name)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "playbook": playbook})
}

// GET /api/v1/playbooks/:id
func (h *PlaybookHandler) GetPlaybook(c *gin.Context) {
	playbook, err := h.playbooks.GetPlaybook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "playbook": playbook})
}

// PATCH /api/v1/playbooks/:id
func (h *PlaybookHandler) UpdatePlaybook(c *gin.Context) {
	var req playbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	playbook, err := h.playbooks.GetPlaybook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if playbook.Status == models.PlaybookArchived {
		respondError(c, models.NewStateConflictError("playbook", playbook.ID, "archived", "update"))
		return
	}

	if req.Name != "" {
		playbook.Name = req.Name
	}
	if req.Description != "" {
		playbook.Description = req.Description
	}
	if req.Trigger != "" {
		playbook.Trigger = models.PlaybookTrigger(req.Trigger)
	}
	if req.TriggerConfig != nil {
		playbook.TriggerConfig = req.TriggerConfig
	}
	if req.Category != "" {
		playbook.Category = models.PlaybookCategory(req.Category)
	}
	if req.Steps != nil {
		playbook.Steps = req.Steps
	}
	playbook.UpdatedAt = time.Now().UTC()

	if err := playbook.Validate(); err != nil {
		respondError(c, err)
		return
	}
	playbook.SortSteps()

	if err := h.playbooks.UpdatePlaybook(c.Request.Context(), playbook); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "playbook": playbook})
}

// POST /api/v1/playbooks/:id/duplicate
func (h *PlaybookHandler) DuplicatePlaybook(c *gin.Context) {
	playbook, err := h.playbooks.GetPlaybook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	dup := playbook.Duplicate(time.Now().UTC())
	if err := h.playbooks.InsertPlaybook(c.Request.Context(), dup); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("playbook duplicated", "source", playbook.ID, "copy", dup.ID)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "playbook": dup})
}

// POST /api/v1/playbooks/:id/toggle
//
// Flips draft <-> active. Archived playbooks stay archived.
func (h *PlaybookHandler) TogglePlaybook(c *gin.Context) {
	playbook, err := h.playbooks.GetPlaybook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if playbook.Status == models.PlaybookArchived {
		respondError(c, models.NewStateConflictError("playbook", playbook.ID, "archived", "toggle"))
		return
	}

	if playbook.Status == models.PlaybookActive {
		playbook.Status = models.PlaybookDraft
	} else {
		playbook.Status = models.PlaybookActive
	}
	playbook.UpdatedAt = time.Now().UTC()

	if err := h.playbooks.UpdatePlaybook(c.Request.Context(), playbook); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "playbook": playbook})
}

// POST /api/v1/playbooks/:id/archive
func (h *PlaybookHandler) ArchivePlaybook(c *gin.Context) {
	playbook, err := h.playbooks.GetPlaybook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if playbook.Status == models.PlaybookArchived {
		c.JSON(http.StatusOK, gin.H{"status": "success", "playbook": playbook})
		return
	}

	playbook.Status = models.PlaybookArchived
	playbook.UpdatedAt = time.Now().UTC()
	if err := h.playbooks.UpdatePlaybook(c.Request.Context(), playbook); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("playbook archived", "playbook", playbook.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "playbook": playbook})
}

// DELETE /api/v1/playbooks/:id
func (h *PlaybookHandler) DeletePlaybook(c *gin.Context) {
	if err := h.playbooks.DeletePlaybook(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type executeRequest struct {
	AlertID   string `json:"alert_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	StartedBy string `json:"started_by,omitempty"`
}

// POST /api/v1/playbooks/:id/execute
func (h *PlaybookHandler) ExecutePlaybook(c *gin.Context) {
	var req executeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
			return
		}
	}

	exec, err := h.executor.Start(c.Request.Context(), c.Param("id"), models.ExecutionTrigger{
		AlertID:   req.AlertID,
		EventID:   req.EventID,
		StartedBy: req.StartedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "execution": exec})
}

// GET /api/v1/executions/:id
func (h *PlaybookHandler) GetExecution(c *gin.Context) {
	exec, err := h.playbooks.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "execution": exec})
}

type updateStepRequest struct {
	StepIndex *int   `json:"step_index"`
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
}

// PATCH /api/v1/executions/:id/steps
func (h *PlaybookHandler) UpdateExecutionStep(c *gin.Context) {
	var req updateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}
	if req.StepIndex == nil {
		respondError(c, models.NewValidationError("step_index", "required"))
		return
	}

	exec, err := h.executor.UpdateStep(c.Request.Context(), c.Param("id"),
		*req.StepIndex, models.StepStatus(req.Status), req.Result)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "execution": exec})
}

type finishRequest struct {
	Reason string `json:"reason,omitempty"`
	Result string `json:"result,omitempty"`
}

// POST /api/v1/executions/:id/abort
func (h *PlaybookHandler) AbortExecution(c *gin.Context) {
	var req finishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
			return
		}
	}

	exec, err := h.executor.Abort(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "execution": exec})
}

// POST /api/v1/executions/:id/complete
func (h *PlaybookHandler) CompleteExecution(c *gin.Context) {
	var req finishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
			return
		}
	}

	exec, err := h.executor.Complete(c.Request.Context(), c.Param("id"), req.Result)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "execution": exec})
}
