package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single reported security occurrence. Immutable once stored,
// except for Status and AssignedTo which change through triage.
type Event struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Source      EventSource            `json:"source"`
	EventType   string                 `json:"event_type"`
	Severity    EventSeverity          `json:"severity"`
	Description string                 `json:"description"`
	RawLog      string                 `json:"raw_log,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Status      EventStatus            `json:"status"`
	AssignedTo  string                 `json:"assigned_to,omitempty"`
	SiteID      string                 `json:"site_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// EventDraft is the inbound shape accepted by the ingestion path.
type EventDraft struct {
	Timestamp   *time.Time             `json:"timestamp,omitempty"`
	Source      string                 `json:"source"`
	EventType   string                 `json:"event_type"`
	Severity    string                 `json:"severity"`
	Description string                 `json:"description"`
	RawLog      string                 `json:"raw_log,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	SiteID      string                 `json:"site_id,omitempty"`
}

// Validate checks required fields and enum membership. It does not sanitize.
func (d *EventDraft) Validate() error {
	if d.Source == "" {
		return NewValidationError("source", "required")
	}
	if d.EventType == "" {
		return NewValidationError("event_type", "required")
	}
	if d.Severity == "" {
		return NewValidationError("severity", "required")
	}
	if d.Description == "" {
		return NewValidationError("description", "required")
	}
	if !EventSource(d.Source).Valid() {
		return NewValidationError("source", "unknown source: "+d.Source)
	}
	if !EventSeverity(d.Severity).Valid() {
		return NewValidationError("severity", "unknown severity: "+d.Severity)
	}
	return nil
}

// NewEvent materializes a validated draft. Timestamp defaults to now.
func NewEvent(d *EventDraft, now time.Time) *Event {
	ts := now
	if d.Timestamp != nil {
		ts = *d.Timestamp
	}
	return &Event{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Source:      EventSource(d.Source),
		EventType:   d.EventType,
		Severity:    EventSeverity(d.Severity),
		Description: d.Description,
		RawLog:      d.RawLog,
		Metadata:    d.Metadata,
		Status:      StatusNew,
		SiteID:      d.SiteID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BatchItemError reports one rejected draft within a batch, keyed by its
// position in the submitted slice.
type BatchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type BatchResult struct {
	Created []*Event         `json:"-"`
	Errors  []BatchItemError `json:"errors"`
}
