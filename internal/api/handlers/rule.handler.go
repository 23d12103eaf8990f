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

type RuleHandler struct {
	rules  storage.RuleStore
	engine *services.AlertEngine
	logger logger.Logger
}

func NewRuleHandler(rules storage.RuleStore, engine *services.AlertEngine, log logger.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, engine: engine, logger: log}
}

type ruleRequest struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Enabled      *bool                 `json:"enabled,omitempty"`
	Condition    *models.RuleCondition `json:"condition,omitempty"`
	Action       string                `json:"action"`
	ActionConfig *models.ActionConfig  `json:"action_config,omitempty"`
	Severity     string                `json:"severity"`
}

// POST /api/v1/alert-rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	now := time.Now().UTC()
	rule := &models.AlertRule{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Enabled:     true,
		Action:      models.RuleAction(req.Action),
		Severity:    req.Severity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Condition != nil {
		rule.Condition = *req.Condition
	}
	if req.ActionConfig != nil {
		rule.ActionConfig = *req.ActionConfig
	}

	if err := rule.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.rules.Insert(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("alert rule created", "rule", rule.ID, "name", rule.Name)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "rule": rule})
}

// GET /api/v1/alert-rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "rule": rule})
}

// PATCH /api/v1/alert-rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "invalid JSON body: "+err.Error()))
		return
	}

	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Description != "" {
		rule.Description = req.Description
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Condition != nil {
		rule.Condition = *req.Condition
	}
	if req.Action != "" {
		rule.Action = models.RuleAction(req.Action)
	}
	if req.ActionConfig != nil {
		rule.ActionConfig = *req.ActionConfig
	}
	if req.Severity != "" {
		rule.Severity = req.Severity
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := rule.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.rules.Update(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "rule": rule})
}

// POST /api/v1/alert-rules/:id/toggle
func (h *RuleHandler) ToggleRule(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	rule.Enabled = !rule.Enabled
	rule.UpdatedAt = time.Now().UTC()
	if err := h.rules.Update(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("alert rule toggled", "rule", rule.ID, "enabled", rule.Enabled)
	c.JSON(http.StatusOK, gin.H{"status": "success", "rule": rule})
}

// DELETE /api/v1/alert-rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.rules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// POST /api/v1/alert-rules/:id/test
//
// Dry-run evaluation: reports whether the rule would fire right now without
// touching trigger bookkeeping or sending anything.
func (h *RuleHandler) TestRule(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	match, err := h.engine.Evaluate(c.Request.Context(), rule)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "would_trigger": match})
}
