package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sentinelsoc/soc-core/internal/config"
)

type Client struct {
	DB *sql.DB
}

// Connect opens the pool, verifies connectivity and bootstraps the schema.
func Connect(cfg config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	c := &Client{DB: db}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error { return c.DB.Close() }

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			source VARCHAR(32) NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			description TEXT NOT NULL,
			raw_log TEXT,
			metadata JSONB DEFAULT '{}',
			status VARCHAR(32) NOT NULL DEFAULT 'new',
			assigned_to VARCHAR(100),
			site_id VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events (event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_severity ON events (severity)`,
		`CREATE INDEX IF NOT EXISTS idx_events_site ON events (site_id)`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id UUID PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			description TEXT,
			enabled BOOLEAN NOT NULL DEFAULT true,
			condition JSONB NOT NULL,
			action VARCHAR(16) NOT NULL DEFAULT 'log',
			action_config JSONB DEFAULT '{}',
			severity VARCHAR(20) NOT NULL DEFAULT 'high',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_triggered TIMESTAMPTZ,
			trigger_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS playbooks (
			id UUID PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			description TEXT DEFAULT '',
			status VARCHAR(16) NOT NULL DEFAULT 'draft',
			trigger_mode VARCHAR(16) NOT NULL DEFAULT 'manual',
			trigger_config JSONB DEFAULT '{}',
			category VARCHAR(32) NOT NULL DEFAULT 'incident',
			steps JSONB DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS playbook_executions (
			id UUID PRIMARY KEY,
			playbook_id UUID NOT NULL REFERENCES playbooks (id),
			playbook_name VARCHAR(200),
			triggered_by_alert_id UUID,
			triggered_by_event_id UUID,
			status VARCHAR(16) NOT NULL DEFAULT 'in_progress',
			started_by VARCHAR(100) NOT NULL DEFAULT 'system',
			steps JSONB DEFAULT '[]',
			current_step INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ,
			result TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_playbook ON playbook_executions (playbook_id)`,
	}
	for _, s := range stmts {
		if _, err := c.DB.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
