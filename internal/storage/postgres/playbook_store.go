package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/monitoring"
)

// PlaybookStore implements storage.PlaybookStore on Postgres. Step arrays
// are JSONB documents but round-trip through the typed StepDef/StepRecord
// shapes, never loose maps.
type PlaybookStore struct {
	client *Client
}

func NewPlaybookStore(client *Client) *PlaybookStore {
	return &PlaybookStore{client: client}
}

func (s *PlaybookStore) InsertPlaybook(ctx context.Context, p *models.Playbook) error {
	start := time.Now()
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal playbook steps: %w", err)
	}
	tc, err := json.Marshal(p.TriggerConfig)
	if err != nil {
		return fmt.Errorf("marshal trigger config: %w", err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO playbooks
			(id, name, description, status, trigger_mode, trigger_config,
			 category, steps, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.Description, string(p.Status), string(p.Trigger), tc,
		string(p.Category), steps, p.CreatedAt, p.UpdatedAt,
	)
	monitoring.RecordDBOperation("insert", "playbooks", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("insert playbook: %w", err)
	}
	return nil
}

func (s *PlaybookStore) GetPlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	row := s.client.DB.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), status, trigger_mode,
		       trigger_config, category, steps, created_at, updated_at
		FROM playbooks WHERE id = $1`, id)

	var p models.Playbook
	var status, trigger, category string
	var tc, steps []byte
	err := row.Scan(&p.ID, &p.Name, &p.Description, &status, &trigger, &tc,
		&category, &steps, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("playbook", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan playbook: %w", err)
	}
	p.Status = models.PlaybookStatus(status)
	p.Trigger = models.PlaybookTrigger(trigger)
	p.Category = models.PlaybookCategory(category)
	if err := json.Unmarshal(steps, &p.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal playbook steps: %w", err)
	}
	if len(tc) > 0 {
		if err := json.Unmarshal(tc, &p.TriggerConfig); err != nil {
			return nil, fmt.Errorf("unmarshal trigger config: %w", err)
		}
	}
	return &p, nil
}

func (s *PlaybookStore) UpdatePlaybook(ctx context.Context, p *models.Playbook) error {
	start := time.Now()
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal playbook steps: %w", err)
	}
	tc, err := json.Marshal(p.TriggerConfig)
	if err != nil {
		return fmt.Errorf("marshal trigger config: %w", err)
	}
	res, err := s.client.DB.ExecContext(ctx, `
		UPDATE playbooks
		SET name=$1, description=$2, status=$3, trigger_mode=$4,
		    trigger_config=$5, category=$6, steps=$7, updated_at=now()
		WHERE id=$8`,
		p.Name, p.Description, string(p.Status), string(p.Trigger), tc,
		string(p.Category), steps, p.ID,
	)
	monitoring.RecordDBOperation("update", "playbooks", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("update playbook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewNotFoundError("playbook", p.ID)
	}
	return nil
}

func (s *PlaybookStore) DeletePlaybook(ctx context.Context, id string) error {
	// Executions reference their playbook; drop them first.
	if _, err := s.client.DB.ExecContext(ctx,
		`DELETE FROM playbook_executions WHERE playbook_id = $1`, id); err != nil {
		return fmt.Errorf("delete playbook executions: %w", err)
	}
	res, err := s.client.DB.ExecContext(ctx, `DELETE FROM playbooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playbook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewNotFoundError("playbook", id)
	}
	return nil
}

func (s *PlaybookStore) InsertExecution(ctx context.Context, e *models.PlaybookExecution) error {
	start := time.Now()
	steps, err := json.Marshal(e.Steps)
	if err != nil {
		return fmt.Errorf("marshal execution steps: %w", err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO playbook_executions
			(id, playbook_id, playbook_name, triggered_by_alert_id,
			 triggered_by_event_id, status, started_by, steps, current_step,
			 started_at, completed_at, result)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.PlaybookID, e.PlaybookName, nullable(e.TriggeredByAlertID),
		nullable(e.TriggeredByEventID), string(e.Status), e.StartedBy, steps,
		e.CurrentStep, e.StartedAt, e.CompletedAt, nullable(e.Result),
	)
	monitoring.RecordDBOperation("insert", "playbook_executions", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

func (s *PlaybookStore) GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	row := s.client.DB.QueryRowContext(ctx, `
		SELECT id, playbook_id, COALESCE(playbook_name, ''),
		       COALESCE(triggered_by_alert_id::text, ''),
		       COALESCE(triggered_by_event_id::text, ''),
		       status, started_by, steps, current_step, started_at,
		       completed_at, COALESCE(result, '')
		FROM playbook_executions WHERE id = $1`, id)

	var e models.PlaybookExecution
	var status string
	var steps []byte
	var completedAt sql.NullTime
	err := row.Scan(&e.ID, &e.PlaybookID, &e.PlaybookName, &e.TriggeredByAlertID,
		&e.TriggeredByEventID, &status, &e.StartedBy, &steps, &e.CurrentStep,
		&e.StartedAt, &completedAt, &e.Result)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("execution", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	e.Status = models.ExecutionStatus(status)
	if err := json.Unmarshal(steps, &e.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal execution steps: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return &e, nil
}

func (s *PlaybookStore) UpdateExecution(ctx context.Context, e *models.PlaybookExecution) error {
	start := time.Now()
	steps, err := json.Marshal(e.Steps)
	if err != nil {
		return fmt.Errorf("marshal execution steps: %w", err)
	}
	res, err := s.client.DB.ExecContext(ctx, `
		UPDATE playbook_executions
		SET status=$1, steps=$2, current_step=$3, completed_at=$4, result=$5
		WHERE id=$6`,
		string(e.Status), steps, e.CurrentStep, e.CompletedAt, nullable(e.Result), e.ID,
	)
	monitoring.RecordDBOperation("update", "playbook_executions", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewNotFoundError("execution", e.ID)
	}
	return nil
}
