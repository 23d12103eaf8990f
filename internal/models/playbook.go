package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// StepDef is one step of a playbook template.
type StepDef struct {
	Order       int                    `json:"order"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// Playbook is a reusable response-procedure template. Executions snapshot
// the step sequence at start time; later edits never reach a running
// execution.
type Playbook struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Status        PlaybookStatus         `json:"status"`
	Trigger       PlaybookTrigger        `json:"trigger"`
	TriggerConfig map[string]interface{} `json:"trigger_config,omitempty"`
	Category      PlaybookCategory       `json:"category"`
	Steps         []StepDef              `json:"steps"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Validate enforces template invariants: enums and unique step orders.
func (p *Playbook) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", "required")
	}
	if !p.Status.Valid() {
		return NewValidationError("status", "unknown status: "+string(p.Status))
	}
	if !p.Trigger.Valid() {
		return NewValidationError("trigger", "unknown trigger: "+string(p.Trigger))
	}
	if !p.Category.Valid() {
		return NewValidationError("category", "unknown category: "+string(p.Category))
	}
	seen := make(map[int]bool, len(p.Steps))
	for _, s := range p.Steps {
		if seen[s.Order] {
			return NewValidationError("steps", "duplicate step order")
		}
		seen[s.Order] = true
	}
	return nil
}

// SortSteps orders the template steps by their execution sequence.
func (p *Playbook) SortSteps() {
	sort.Slice(p.Steps, func(i, j int) bool { return p.Steps[i].Order < p.Steps[j].Order })
}

// Duplicate returns a fresh draft copy of the template. Step definitions are
// copied without any per-step runtime fields (those only ever exist on
// execution records); the config maps are cloned so later edits to either
// playbook never alias into the other.
func (p *Playbook) Duplicate(now time.Time) *Playbook {
	return &Playbook{
		ID:            uuid.NewString(),
		Name:          p.Name + " (Copy)",
		Description:   p.Description,
		Status:        PlaybookDraft,
		Trigger:       p.Trigger,
		TriggerConfig: cloneConfig(p.TriggerConfig),
		Category:      p.Category,
		Steps:         cloneSteps(p.Steps),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func cloneSteps(steps []StepDef) []StepDef {
	out := make([]StepDef, len(steps))
	copy(out, steps)
	for i := range out {
		out[i].Config = cloneConfig(out[i].Config)
	}
	return out
}

func cloneConfig(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneConfigValue(v)
	}
	return out
}

func cloneConfigValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneConfig(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneConfigValue(e)
		}
		return out
	default:
		return v
	}
}

// StepRecord is one step of an execution: the template definition plus the
// runtime state owned exclusively by the execution.
type StepRecord struct {
	StepDef
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      string     `json:"result,omitempty"`
}

// ExecutionTrigger carries the optional provenance of an execution start.
type ExecutionTrigger struct {
	AlertID   string `json:"alertId,omitempty"`
	EventID   string `json:"eventId,omitempty"`
	StartedBy string `json:"startedBy,omitempty"`
}

// PlaybookExecution is one run of a playbook. Terminal once Status leaves
// in_progress.
type PlaybookExecution struct {
	ID                 string          `json:"id"`
	PlaybookID         string          `json:"playbook_id"`
	PlaybookName       string          `json:"playbook_name,omitempty"`
	TriggeredByAlertID string          `json:"triggered_by_alert_id,omitempty"`
	TriggeredByEventID string          `json:"triggered_by_event_id,omitempty"`
	Status             ExecutionStatus `json:"status"`
	StartedBy          string          `json:"started_by"`
	Steps              []StepRecord    `json:"steps"`
	CurrentStep        int             `json:"current_step"`
	StartedAt          time.Time       `json:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Result             string          `json:"result,omitempty"`
}

// NewExecution snapshots the playbook's step sequence into a fresh run.
func NewExecution(p *Playbook, trigger ExecutionTrigger, now time.Time) *PlaybookExecution {
	p.SortSteps()
	steps := make([]StepRecord, len(p.Steps))
	for i, def := range cloneSteps(p.Steps) {
		steps[i] = StepRecord{StepDef: def, Status: StepPending}
	}
	startedBy := trigger.StartedBy
	if startedBy == "" {
		startedBy = "system"
	}
	return &PlaybookExecution{
		ID:                 uuid.NewString(),
		PlaybookID:         p.ID,
		PlaybookName:       p.Name,
		TriggeredByAlertID: trigger.AlertID,
		TriggeredByEventID: trigger.EventID,
		Status:             ExecutionInProgress,
		StartedBy:          startedBy,
		Steps:              steps,
		CurrentStep:        0,
		StartedAt:          now,
	}
}

// AllStepsTerminal reports whether every step has reached a terminal state.
// False for an empty step list; an execution with no steps only finishes
// through an explicit complete or abort.
func (e *PlaybookExecution) AllStepsTerminal() bool {
	if len(e.Steps) == 0 {
		return false
	}
	for _, s := range e.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}
