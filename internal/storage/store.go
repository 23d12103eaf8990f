package storage

import (
	"context"
	"time"

	"github.com/sentinelsoc/soc-core/internal/models"
)

// EventFilter composes the attribute and time constraints of a count/list
// query. Zero values mean "no constraint".
type EventFilter struct {
	EventType string
	Source    models.EventSource
	Severity  models.EventSeverity
	SiteID    string
	Since     *time.Time
}

// EventStore is the durable home of security events.
type EventStore interface {
	Insert(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, id string) (*models.Event, error)
	Count(ctx context.Context, filter EventFilter) (int, error)
	UpdateStatus(ctx context.Context, id string, status models.EventStatus, assignedTo *string) (*models.Event, error)
	// DeleteResolvedBefore removes resolved events last updated before the
	// cutoff. Used only by the opt-in retention job.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RuleStore persists alert rules and their trigger bookkeeping.
type RuleStore interface {
	Insert(ctx context.Context, rule *models.AlertRule) error
	Get(ctx context.Context, id string) (*models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, id string) error
	ListEnabled(ctx context.Context) ([]*models.AlertRule, error)
	// RecordTrigger commits trigger bookkeeping for a fired rule. This is
	// persisted before any notification dispatch is attempted.
	RecordTrigger(ctx context.Context, id string, at time.Time) error
}

// PlaybookStore persists playbook templates and their executions.
type PlaybookStore interface {
	InsertPlaybook(ctx context.Context, p *models.Playbook) error
	GetPlaybook(ctx context.Context, id string) (*models.Playbook, error)
	UpdatePlaybook(ctx context.Context, p *models.Playbook) error
	DeletePlaybook(ctx context.Context, id string) error

	InsertExecution(ctx context.Context, e *models.PlaybookExecution) error
	GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error)
	UpdateExecution(ctx context.Context, e *models.PlaybookExecution) error
}
