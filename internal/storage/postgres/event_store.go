package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/monitoring"
	"github.com/sentinelsoc/soc-core/internal/storage"
)

// EventStore implements storage.EventStore on Postgres.
type EventStore struct {
	client *Client
}

func NewEventStore(client *Client) *EventStore {
	return &EventStore{client: client}
}

func (s *EventStore) Insert(ctx context.Context, e *models.Event) error {
	start := time.Now()
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO events
			(id, timestamp, source, event_type, severity, description, raw_log,
			 metadata, status, assigned_to, site_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.Timestamp, string(e.Source), e.EventType, string(e.Severity),
		e.Description, nullable(e.RawLog), meta, string(e.Status),
		nullable(e.AssignedTo), nullable(e.SiteID), e.CreatedAt, e.UpdatedAt,
	)
	monitoring.RecordDBOperation("insert", "events", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	row := s.client.DB.QueryRowContext(ctx, `
		SELECT id, timestamp, source, event_type, severity, description,
		       COALESCE(raw_log, ''), metadata, status, COALESCE(assigned_to, ''),
		       COALESCE(site_id, ''), created_at, updated_at
		FROM events WHERE id = $1`, id)
	return scanEvent(row, id)
}

func (s *EventStore) Count(ctx context.Context, f storage.EventFilter) (int, error) {
	start := time.Now()
	query := `SELECT COUNT(*) FROM events WHERE 1=1`
	args := make([]interface{}, 0, 5)
	n := 0
	add := func(clause string, v interface{}) {
		n++
		query += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if f.EventType != "" {
		add("event_type", f.EventType)
	}
	if f.Source != "" {
		add("source", string(f.Source))
	}
	if f.Severity != "" {
		add("severity", string(f.Severity))
	}
	if f.SiteID != "" {
		add("site_id", f.SiteID)
	}
	if f.Since != nil {
		n++
		query += fmt.Sprintf(" AND timestamp >= $%d", n)
		args = append(args, *f.Since)
	}
	var count int
	err := s.client.DB.QueryRowContext(ctx, query, args...).Scan(&count)
	monitoring.RecordDBOperation("count", "events", time.Since(start), err == nil)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (s *EventStore) UpdateStatus(ctx context.Context, id string, status models.EventStatus, assignedTo *string) (*models.Event, error) {
	start := time.Now()
	var err error
	if assignedTo != nil {
		_, err = s.client.DB.ExecContext(ctx, `
			UPDATE events SET status = $1, assigned_to = $2, updated_at = now()
			WHERE id = $3`, string(status), *assignedTo, id)
	} else {
		_, err = s.client.DB.ExecContext(ctx, `
			UPDATE events SET status = $1, updated_at = now()
			WHERE id = $2`, string(status), id)
	}
	monitoring.RecordDBOperation("update", "events", time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *EventStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	res, err := s.client.DB.ExecContext(ctx, `
		DELETE FROM events WHERE status = $1 AND updated_at < $2`,
		string(models.StatusResolved), cutoff)
	monitoring.RecordDBOperation("delete", "events", time.Since(start), err == nil)
	if err != nil {
		return 0, fmt.Errorf("delete resolved events: %w", err)
	}
	return res.RowsAffected()
}

func scanEvent(row *sql.Row, id string) (*models.Event, error) {
	var e models.Event
	var source, severity, status string
	var meta []byte
	err := row.Scan(&e.ID, &e.Timestamp, &source, &e.EventType, &severity,
		&e.Description, &e.RawLog, &meta, &status, &e.AssignedTo, &e.SiteID,
		&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Source = models.EventSource(source)
	e.Severity = models.EventSeverity(severity)
	e.Status = models.EventStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	return &e, nil
}

// nullable maps "" to NULL so empty optionals don't masquerade as values.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
