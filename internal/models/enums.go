package models

// EventSource identifies the class of system that reported an event.
type EventSource string

const (
	SourceFirewall        EventSource = "firewall"
	SourceIDS             EventSource = "ids"
	SourceEndpoint        EventSource = "endpoint"
	SourceNetwork         EventSource = "network"
	SourceEmail           EventSource = "email"
	SourceActiveDirectory EventSource = "active_directory"
	SourceApplication     EventSource = "application"
)

func (s EventSource) Valid() bool {
	switch s {
	case SourceFirewall, SourceIDS, SourceEndpoint, SourceNetwork,
		SourceEmail, SourceActiveDirectory, SourceApplication:
		return true
	}
	return false
}

// EventSeverity is the analyst-facing severity of an event.
type EventSeverity string

const (
	SeverityCritical EventSeverity = "critical"
	SeverityHigh     EventSeverity = "high"
	SeverityMedium   EventSeverity = "medium"
	SeverityLow      EventSeverity = "low"
)

func (s EventSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// EventStatus tracks the triage lifecycle of an event.
type EventStatus string

const (
	StatusNew           EventStatus = "new"
	StatusInvestigating EventStatus = "investigating"
	StatusResolved      EventStatus = "resolved"
	StatusFalsePositive EventStatus = "false_positive"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInvestigating, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// RuleAction selects the notification side effect of a triggered rule.
type RuleAction string

const (
	ActionEmail   RuleAction = "email"
	ActionWebhook RuleAction = "webhook"
	ActionLog     RuleAction = "log"
)

func (a RuleAction) Valid() bool {
	switch a {
	case ActionEmail, ActionWebhook, ActionLog:
		return true
	}
	return false
}

// PlaybookStatus is the template lifecycle state. Archived is terminal.
type PlaybookStatus string

const (
	PlaybookDraft    PlaybookStatus = "draft"
	PlaybookActive   PlaybookStatus = "active"
	PlaybookArchived PlaybookStatus = "archived"
)

func (s PlaybookStatus) Valid() bool {
	switch s {
	case PlaybookDraft, PlaybookActive, PlaybookArchived:
		return true
	}
	return false
}

type PlaybookTrigger string

const (
	TriggerManual    PlaybookTrigger = "manual"
	TriggerAlertRule PlaybookTrigger = "alert_rule"
	TriggerScheduled PlaybookTrigger = "scheduled"
)

func (t PlaybookTrigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerAlertRule, TriggerScheduled:
		return true
	}
	return false
}

type PlaybookCategory string

const (
	CategoryIncident      PlaybookCategory = "incident"
	CategoryInvestigation PlaybookCategory = "investigation"
	CategoryRemediation   PlaybookCategory = "remediation"
	CategoryCompliance    PlaybookCategory = "compliance"
)

func (c PlaybookCategory) Valid() bool {
	switch c {
	case CategoryIncident, CategoryInvestigation, CategoryRemediation, CategoryCompliance:
		return true
	}
	return false
}

// ExecutionStatus is the overall state of one playbook run.
// Everything except in_progress is terminal.
type ExecutionStatus string

const (
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionAborted    ExecutionStatus = "aborted"
	ExecutionFailed     ExecutionStatus = "failed"
)

func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionInProgress, ExecutionCompleted, ExecutionAborted, ExecutionFailed:
		return true
	}
	return false
}

func (s ExecutionStatus) Terminal() bool {
	return s.Valid() && s != ExecutionInProgress
}

// StepStatus is the per-step state within an execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepRunning, StepCompleted, StepFailed, StepSkipped:
		return true
	}
	return false
}

func (s StepStatus) Terminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped:
		return true
	}
	return false
}
