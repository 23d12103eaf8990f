package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// NATSIntake subscribes to an event subject and feeds messages into the
// ingestion path. Collectors that cannot speak HTTP publish drafts here.
type NATSIntake struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	subject  string
	ingestor *Ingestor
	logger   logger.Logger
}

func NewNATSIntake(url, subject string, ingestor *Ingestor, log logger.Logger) (*NATSIntake, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSIntake{
		conn:     conn,
		subject:  subject,
		ingestor: ingestor,
		logger:   log,
	}, nil
}

// Start subscribes and processes messages until Close. A malformed message
// is logged and dropped; it never stalls the subscription.
func (n *NATSIntake) Start(ctx context.Context) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var draft models.EventDraft
		if err := json.Unmarshal(msg.Data, &draft); err != nil {
			n.logger.Warn("dropping unparseable event message", "subject", msg.Subject, "error", err)
			return
		}
		if _, err := n.ingestor.Ingest(ctx, &draft); err != nil {
			n.logger.Warn("event from bus rejected", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return err
	}
	n.sub = sub
	n.logger.Info("nats intake subscribed", "subject", n.subject)
	return nil
}

func (n *NATSIntake) Close() {
	if n.sub != nil {
		if err := n.sub.Drain(); err != nil {
			n.logger.Warn("nats drain failed", "error", err)
		}
	}
	n.conn.Close()
}
