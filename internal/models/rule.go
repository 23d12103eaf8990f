package models

import (
	"fmt"
	"time"
)

// Any is the wildcard accepted in rule condition filters.
const Any = "any"

// RuleCondition scopes which events count toward a rule's threshold.
// Filter fields accept a concrete value, "any", or empty (same as "any").
type RuleCondition struct {
	EventType string `json:"event_type,omitempty"`
	Source    string `json:"source,omitempty"`
	Severity  string `json:"severity,omitempty"`
	SiteID    string `json:"site_id,omitempty"`
	Count     int    `json:"count"`
	Timeframe string `json:"timeframe,omitempty"`
}

// Threshold returns the effective match count, defaulting to 1.
func (c *RuleCondition) Threshold() int {
	if c.Count < 1 {
		return 1
	}
	return c.Count
}

// ActionConfig carries the action-specific settings of a rule.
type ActionConfig struct {
	Recipients []string `json:"recipients,omitempty"` // email
	URL        string   `json:"url,omitempty"`        // webhook
}

// AlertRule is a standing detection definition. Trigger bookkeeping
// (LastTriggered, TriggerCount) is mutated only by the alert engine.
type AlertRule struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Enabled       bool          `json:"enabled"`
	Condition     RuleCondition `json:"condition"`
	Action        RuleAction    `json:"action"`
	ActionConfig  ActionConfig  `json:"action_config"`
	Severity      string        `json:"severity"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	LastTriggered *time.Time    `json:"last_triggered,omitempty"`
	TriggerCount  int           `json:"trigger_count"`
}

// Validate enforces rule invariants at creation/update time. Unlike the
// evaluator, which skips filter values it cannot interpret, creation rejects
// them outright so a rule never silently matches wider than written.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return NewValidationError("name", "required")
	}
	if !r.Action.Valid() {
		return NewValidationError("action", fmt.Sprintf("unknown action: %s", r.Action))
	}
	// zero means unset and falls back to the Threshold default of 1
	if r.Condition.Count < 0 {
		return NewValidationError("condition.count", "must not be negative")
	}
	if src := r.Condition.Source; src != "" && src != Any && !EventSource(src).Valid() {
		return NewValidationError("condition.source", "unknown source: "+src)
	}
	if sev := r.Condition.Severity; sev != "" && sev != Any && !EventSeverity(sev).Valid() {
		return NewValidationError("condition.severity", "unknown severity: "+sev)
	}
	if tf := r.Condition.Timeframe; tf != "" {
		if _, err := ParseTimeframe(tf); err != nil {
			return NewValidationError("condition.timeframe", err.Error())
		}
	}
	switch r.Action {
	case ActionEmail:
		if len(r.ActionConfig.Recipients) == 0 {
			return NewValidationError("action_config.recipients", "required for email action")
		}
	case ActionWebhook:
		if r.ActionConfig.URL == "" {
			return NewValidationError("action_config.url", "required for webhook action")
		}
	}
	return nil
}
