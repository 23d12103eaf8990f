// Package memory provides mutex-guarded in-memory implementations of the
// storage contracts. They back unit tests and local development without a
// database; production wiring uses the postgres package.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage"
)

type EventStore struct {
	mu     sync.RWMutex
	events map[string]*models.Event
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]*models.Event)}
}

func (s *EventStore) Insert(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *EventStore) Get(_ context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.NewNotFoundError("event", id)
	}
	return cloneEvent(e), nil
}

func (s *EventStore) Count(_ context.Context, f storage.EventFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.events {
		if matches(e, f) {
			count++
		}
	}
	return count, nil
}

func matches(e *models.Event, f storage.EventFilter) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.SiteID != "" && e.SiteID != f.SiteID {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}

func (s *EventStore) UpdateStatus(_ context.Context, id string, status models.EventStatus, assignedTo *string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.NewNotFoundError("event", id)
	}
	e.Status = status
	if assignedTo != nil {
		e.AssignedTo = *assignedTo
	}
	e.UpdatedAt = time.Now().UTC()
	return cloneEvent(e), nil
}

func (s *EventStore) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.events {
		if e.Status == models.StatusResolved && e.UpdatedAt.Before(cutoff) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]*models.AlertRule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]*models.AlertRule)}
}

func (s *RuleStore) Insert(_ context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID] = cloneRule(r)
	return nil
}

func (s *RuleStore) Get(_ context.Context, id string) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, models.NewNotFoundError("alert rule", id)
	}
	return cloneRule(r), nil
}

func (s *RuleStore) Update(_ context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[r.ID]
	if !ok {
		return models.NewNotFoundError("alert rule", r.ID)
	}
	updated := cloneRule(r)
	// bookkeeping stays owned by RecordTrigger
	updated.LastTriggered = existing.LastTriggered
	updated.TriggerCount = existing.TriggerCount
	s.rules[r.ID] = updated
	return nil
}

func (s *RuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return models.NewNotFoundError("alert rule", id)
	}
	delete(s.rules, id)
	return nil
}

func (s *RuleStore) ListEnabled(_ context.Context) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AlertRule
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, cloneRule(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RuleStore) RecordTrigger(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return models.NewNotFoundError("alert rule", id)
	}
	t := at
	r.LastTriggered = &t
	r.TriggerCount++
	return nil
}

type PlaybookStore struct {
	mu         sync.RWMutex
	playbooks  map[string]*models.Playbook
	executions map[string]*models.PlaybookExecution
}

func NewPlaybookStore() *PlaybookStore {
	return &PlaybookStore{
		playbooks:  make(map[string]*models.Playbook),
		executions: make(map[string]*models.PlaybookExecution),
	}
}

func (s *PlaybookStore) InsertPlaybook(_ context.Context, p *models.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbooks[p.ID] = clonePlaybook(p)
	return nil
}

func (s *PlaybookStore) GetPlaybook(_ context.Context, id string) (*models.Playbook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playbooks[id]
	if !ok {
		return nil, models.NewNotFoundError("playbook", id)
	}
	return clonePlaybook(p), nil
}

func (s *PlaybookStore) UpdatePlaybook(_ context.Context, p *models.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playbooks[p.ID]; !ok {
		return models.NewNotFoundError("playbook", p.ID)
	}
	s.playbooks[p.ID] = clonePlaybook(p)
	return nil
}

func (s *PlaybookStore) DeletePlaybook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playbooks[id]; !ok {
		return models.NewNotFoundError("playbook", id)
	}
	delete(s.playbooks, id)
	for eid, e := range s.executions {
		if e.PlaybookID == id {
			delete(s.executions, eid)
		}
	}
	return nil
}

func (s *PlaybookStore) InsertExecution(_ context.Context, e *models.PlaybookExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[e.ID] = cloneExecution(e)
	return nil
}

func (s *PlaybookStore) GetExecution(_ context.Context, id string) (*models.PlaybookExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, models.NewNotFoundError("execution", id)
	}
	return cloneExecution(e), nil
}

func (s *PlaybookStore) UpdateExecution(_ context.Context, e *models.PlaybookExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[e.ID]; !ok {
		return models.NewNotFoundError("execution", e.ID)
	}
	s.executions[e.ID] = cloneExecution(e)
	return nil
}

// clones go through JSON so callers can never alias stored state; the shapes
// are small and this is test/dev infrastructure.
func cloneEvent(e *models.Event) *models.Event             { return roundTrip(e, &models.Event{}) }
func cloneRule(r *models.AlertRule) *models.AlertRule      { return roundTrip(r, &models.AlertRule{}) }
func clonePlaybook(p *models.Playbook) *models.Playbook    { return roundTrip(p, &models.Playbook{}) }
func cloneExecution(e *models.PlaybookExecution) *models.PlaybookExecution {
	return roundTrip(e, &models.PlaybookExecution{})
}

func roundTrip[T any](src, dst *T) *T {
	b, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		panic(err)
	}
	return dst
}
