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

// RuleStore implements storage.RuleStore on Postgres. Condition and action
// config travel as JSONB, matching how operators edit them.
type RuleStore struct {
	client *Client
}

func NewRuleStore(client *Client) *RuleStore {
	return &RuleStore{client: client}
}

func (s *RuleStore) Insert(ctx context.Context, r *models.AlertRule) error {
	start := time.Now()
	cond, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("marshal rule condition: %w", err)
	}
	ac, err := json.Marshal(r.ActionConfig)
	if err != nil {
		return fmt.Errorf("marshal rule action config: %w", err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO alert_rules
			(id, name, description, enabled, condition, action, action_config,
			 severity, created_at, updated_at, last_triggered, trigger_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.Name, r.Description, r.Enabled, cond, string(r.Action), ac,
		r.Severity, r.CreatedAt, r.UpdatedAt, r.LastTriggered, r.TriggerCount,
	)
	monitoring.RecordDBOperation("insert", "alert_rules", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	return nil
}

func (s *RuleStore) Get(ctx context.Context, id string) (*models.AlertRule, error) {
	rows, err := s.client.DB.QueryContext(ctx, ruleSelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get alert rule: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, models.NewNotFoundError("alert rule", id)
	}
	return scanRule(rows)
}

func (s *RuleStore) Update(ctx context.Context, r *models.AlertRule) error {
	start := time.Now()
	cond, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("marshal rule condition: %w", err)
	}
	ac, err := json.Marshal(r.ActionConfig)
	if err != nil {
		return fmt.Errorf("marshal rule action config: %w", err)
	}
	res, err := s.client.DB.ExecContext(ctx, `
		UPDATE alert_rules
		SET name=$1, description=$2, enabled=$3, condition=$4, action=$5,
		    action_config=$6, severity=$7, updated_at=now()
		WHERE id=$8`,
		r.Name, r.Description, r.Enabled, cond, string(r.Action), ac, r.Severity, r.ID,
	)
	monitoring.RecordDBOperation("update", "alert_rules", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewNotFoundError("alert rule", r.ID)
	}
	return nil
}

func (s *RuleStore) Delete(ctx context.Context, id string) error {
	res, err := s.client.DB.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewNotFoundError("alert rule", id)
	}
	return nil
}

func (s *RuleStore) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	rows, err := s.client.DB.QueryContext(ctx, ruleSelect+` WHERE enabled = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	defer rows.Close()
	var out []*models.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RuleStore) RecordTrigger(ctx context.Context, id string, at time.Time) error {
	start := time.Now()
	_, err := s.client.DB.ExecContext(ctx, `
		UPDATE alert_rules
		SET last_triggered = $1, trigger_count = trigger_count + 1, updated_at = now()
		WHERE id = $2`, at, id)
	monitoring.RecordDBOperation("update", "alert_rules", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("record rule trigger: %w", err)
	}
	return nil
}

const ruleSelect = `
	SELECT id, name, COALESCE(description, ''), enabled, condition, action,
	       action_config, severity, created_at, updated_at, last_triggered,
	       trigger_count
	FROM alert_rules`

func scanRule(rows *sql.Rows) (*models.AlertRule, error) {
	var r models.AlertRule
	var action string
	var cond, ac []byte
	var lastTriggered sql.NullTime
	err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Enabled, &cond, &action,
		&ac, &r.Severity, &r.CreatedAt, &r.UpdatedAt, &lastTriggered, &r.TriggerCount)
	if err != nil {
		return nil, fmt.Errorf("scan alert rule: %w", err)
	}
	r.Action = models.RuleAction(action)
	if err := json.Unmarshal(cond, &r.Condition); err != nil {
		return nil, fmt.Errorf("unmarshal rule condition: %w", err)
	}
	if len(ac) > 0 {
		if err := json.Unmarshal(ac, &r.ActionConfig); err != nil {
			return nil, fmt.Errorf("unmarshal rule action config: %w", err)
		}
	}
	if lastTriggered.Valid {
		t := lastTriggered.Time
		r.LastTriggered = &t
	}
	return &r, nil
}
