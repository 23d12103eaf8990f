package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// Broadcaster is the realtime fan-out surface the pipeline publishes to.
// Implemented by the websocket hub.
type Broadcaster interface {
	PublishEvent(event *models.Event)
	PublishAlert(payload interface{})
}

// NotificationTransport delivers outbound notifications. Both methods are
// best-effort and non-throwing at this boundary: failures are reported as
// false and logged by the implementation.
type NotificationTransport interface {
	SendEmail(ctx context.Context, recipients []string, subject, body string) bool
	SendWebhook(ctx context.Context, url string, payload interface{}) bool
}

// Notifier turns triggered rules into notification side effects. Dispatch
// runs on a small worker pool fed by a bounded queue so a slow mail server
// never stalls ingestion or the scheduler; trigger bookkeeping is already
// committed by the time a rule reaches this queue, and a still-satisfied
// rule re-fires on the next pass, so a dropped notification is recoverable.
type Notifier struct {
	transport NotificationTransport
	hub       Broadcaster
	logger    logger.Logger
	queue     chan *models.AlertRule
	workers   int
}

func NewNotifier(transport NotificationTransport, hub Broadcaster, queueSize, workers int, log logger.Logger) *Notifier {
	if queueSize < 1 {
		queueSize = 256
	}
	if workers < 1 {
		workers = 4
	}
	return &Notifier{
		transport: transport,
		hub:       hub,
		logger:    log,
		queue:     make(chan *models.AlertRule, queueSize),
		workers:   workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	for i := 0; i < n.workers; i++ {
		go n.worker(ctx)
	}
}

func (n *Notifier) worker(ctx context.Context) {
	for {
		select {
		case rule := <-n.queue:
			n.Dispatch(ctx, rule)
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue hands a triggered rule to the worker pool without blocking the
// caller. A full queue drops the notification with a warning.
func (n *Notifier) Enqueue(rule *models.AlertRule) {
	select {
	case n.queue <- rule:
	default:
		metrics.NotificationsSent.WithLabelValues(string(rule.Action), "dropped").Inc()
		n.logger.Warn("notification queue full, dropping", "rule", rule.ID, "action", rule.Action)
	}
}

// Dispatch performs the rule's notification action. Transport failures are
// logged and counted but never returned: one rule's flaky webhook must not
// affect any other rule or the evaluation pass that fired it.
func (n *Notifier) Dispatch(ctx context.Context, rule *models.AlertRule) {
	message := FormatAlertMessage(rule)

	n.hub.PublishAlert(map[string]interface{}{
		"type":    "rule_triggered",
		"rule":    rule,
		"message": message,
	})

	switch rule.Action {
	case models.ActionLog:
		n.logger.Info("alert rule triggered", "rule", rule.ID, "name", rule.Name, "severity", rule.Severity)
		metrics.NotificationsSent.WithLabelValues("log", "success").Inc()

	case models.ActionEmail:
		recipients := rule.ActionConfig.Recipients
		if len(recipients) == 0 {
			n.logger.Warn("email rule has no recipients", "rule", rule.ID)
			metrics.NotificationsSent.WithLabelValues("email", "failure").Inc()
			return
		}
		ok := n.transport.SendEmail(ctx, recipients, rule.Name, message)
		n.recordOutcome("email", rule, ok)

	case models.ActionWebhook:
		url := rule.ActionConfig.URL
		if url == "" {
			n.logger.Warn("webhook rule has no url", "rule", rule.ID)
			metrics.NotificationsSent.WithLabelValues("webhook", "failure").Inc()
			return
		}
		ok := n.transport.SendWebhook(ctx, url, map[string]interface{}{
			"alert":   rule,
			"message": message,
		})
		n.recordOutcome("webhook", rule, ok)

	default:
		n.logger.Error("rule has unknown action, nothing dispatched", "rule", rule.ID, "action", rule.Action)
	}
}

func (n *Notifier) recordOutcome(channel string, rule *models.AlertRule, ok bool) {
	if ok {
		metrics.NotificationsSent.WithLabelValues(channel, "success").Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues(channel, "failure").Inc()
	n.logger.Error("notification delivery failed", "channel", channel, "rule", rule.ID)
}

// FormatAlertMessage renders the operator-facing notification body.
func FormatAlertMessage(rule *models.AlertRule) string {
	desc := rule.Description
	if desc == "" {
		desc = "N/A"
	}
	lines := []string{
		fmt.Sprintf("Alert Rule Triggered: %s", rule.Name),
		fmt.Sprintf("Severity: %s", strings.ToUpper(rule.Severity)),
		fmt.Sprintf("Description: %s", desc),
		fmt.Sprintf("Condition: %s", formatCondition(rule.Condition)),
		"",
		fmt.Sprintf("Triggered at %s", time.Now().UTC().Format(time.RFC3339)),
	}
	return strings.Join(lines, "\n")
}

func formatCondition(c models.RuleCondition) string {
	parts := []string{fmt.Sprintf("count>=%d", c.Threshold())}
	if c.EventType != "" && c.EventType != models.Any {
		parts = append(parts, "event_type="+c.EventType)
	}
	if c.Source != "" && c.Source != models.Any {
		parts = append(parts, "source="+c.Source)
	}
	if c.Severity != "" && c.Severity != models.Any {
		parts = append(parts, "severity="+c.Severity)
	}
	if c.SiteID != "" && c.SiteID != models.Any {
		parts = append(parts, "site="+c.SiteID)
	}
	if c.Timeframe != "" {
		parts = append(parts, "within "+c.Timeframe)
	}
	return strings.Join(parts, ", ")
}
