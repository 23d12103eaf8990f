package services

import (
	"context"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// AlertEngine evaluates standing alert rules against the event store.
//
// Rules have no per-trigger cooldown: a rule whose condition still holds
// fires again on every evaluation pass. That is deliberate product behavior
// (operators see sustained conditions re-alert), not an oversight; do not
// add suppression here without a product decision.
type AlertEngine struct {
	events storage.EventStore
	rules  storage.RuleStore
	logger logger.Logger
	now    func() time.Time
}

func NewAlertEngine(events storage.EventStore, rules storage.RuleStore, log logger.Logger) *AlertEngine {
	return &AlertEngine{
		events: events,
		rules:  rules,
		logger: log,
		now:    time.Now,
	}
}

// filterFor composes the event filter for a rule condition. Filter values
// that fail enum validation are skipped rather than failing the rule: rules
// created before filter validation existed may still carry them, and an
// evaluation pass must not wedge on one bad row. Creation-time validation
// rejects such values for new rules. An unparseable timeframe likewise falls
// back to "no time bound", which widens matching; it is logged for that
// reason.
func (e *AlertEngine) filterFor(rule *models.AlertRule) storage.EventFilter {
	cond := rule.Condition
	var f storage.EventFilter

	if cond.EventType != "" && cond.EventType != models.Any {
		f.EventType = cond.EventType
	}
	if cond.Source != "" && cond.Source != models.Any {
		if src := models.EventSource(cond.Source); src.Valid() {
			f.Source = src
		} else {
			e.logger.Warn("rule condition has unknown source, filter skipped",
				"rule", rule.ID, "source", cond.Source)
		}
	}
	if cond.Severity != "" && cond.Severity != models.Any {
		if sev := models.EventSeverity(cond.Severity); sev.Valid() {
			f.Severity = sev
		} else {
			e.logger.Warn("rule condition has unknown severity, filter skipped",
				"rule", rule.ID, "severity", cond.Severity)
		}
	}
	if cond.SiteID != "" && cond.SiteID != models.Any {
		f.SiteID = cond.SiteID
	}
	if cond.Timeframe != "" {
		if d, err := models.ParseTimeframe(cond.Timeframe); err == nil {
			since := e.now().Add(-d)
			f.Since = &since
		} else {
			e.logger.Warn("rule has unparseable timeframe, evaluating without time bound",
				"rule", rule.ID, "timeframe", cond.Timeframe)
		}
	}
	return f
}

// Evaluate reports whether the rule's threshold currently holds.
func (e *AlertEngine) Evaluate(ctx context.Context, rule *models.AlertRule) (bool, error) {
	metrics.RulesEvaluated.Inc()
	count, err := e.events.Count(ctx, e.filterFor(rule))
	if err != nil {
		return false, err
	}
	return count >= rule.Condition.Threshold(), nil
}

// EvaluateAllRules evaluates every enabled rule and returns those that
// fired. Trigger bookkeeping is committed per rule before the rule is
// returned for dispatch, so a later notification failure can never leave
// bookkeeping stale. One rule's failure never aborts its siblings.
func (e *AlertEngine) EvaluateAllRules(ctx context.Context) ([]*models.AlertRule, error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	var triggered []*models.AlertRule
	for _, rule := range rules {
		match, err := e.Evaluate(ctx, rule)
		if err != nil {
			e.logger.Error("rule evaluation failed", "rule", rule.ID, "error", err)
			continue
		}
		if !match {
			continue
		}
		if err := e.recordTrigger(ctx, rule); err != nil {
			e.logger.Error("failed to record rule trigger", "rule", rule.ID, "error", err)
			continue
		}
		triggered = append(triggered, rule)
	}
	return triggered, nil
}

// CheckEventAgainstRules is the fast path run right after one event is
// ingested: rules whose attribute filters the event plainly cannot satisfy
// are skipped without a count query; surviving candidates still need the
// full threshold check.
func (e *AlertEngine) CheckEventAgainstRules(ctx context.Context, event *models.Event) ([]*models.AlertRule, error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	var triggered []*models.AlertRule
	for _, rule := range rules {
		if !eventMatchesCondition(event, rule.Condition) {
			continue
		}
		match, err := e.Evaluate(ctx, rule)
		if err != nil {
			e.logger.Error("rule evaluation failed", "rule", rule.ID, "error", err)
			continue
		}
		if !match {
			continue
		}
		if err := e.recordTrigger(ctx, rule); err != nil {
			e.logger.Error("failed to record rule trigger", "rule", rule.ID, "error", err)
			continue
		}
		triggered = append(triggered, rule)
	}
	return triggered, nil
}

func (e *AlertEngine) recordTrigger(ctx context.Context, rule *models.AlertRule) error {
	now := e.now().UTC()
	if err := e.rules.RecordTrigger(ctx, rule.ID, now); err != nil {
		return err
	}
	rule.LastTriggered = &now
	rule.TriggerCount++
	metrics.RulesTriggered.WithLabelValues(string(rule.Action)).Inc()
	return nil
}

func eventMatchesCondition(event *models.Event, cond models.RuleCondition) bool {
	if cond.EventType != "" && cond.EventType != models.Any && event.EventType != cond.EventType {
		return false
	}
	if cond.Source != "" && cond.Source != models.Any && string(event.Source) != cond.Source {
		return false
	}
	if cond.Severity != "" && cond.Severity != models.Any && string(event.Severity) != cond.Severity {
		return false
	}
	if cond.SiteID != "" && cond.SiteID != models.Any && event.SiteID != cond.SiteID {
		return false
	}
	return true
}
