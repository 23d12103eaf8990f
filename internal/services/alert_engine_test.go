package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage/memory"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

func testEngine(t *testing.T, now time.Time) (*AlertEngine, *memory.EventStore, *memory.RuleStore) {
	t.Helper()
	events := memory.NewEventStore()
	rules := memory.NewRuleStore()
	eng := NewAlertEngine(events, rules, logger.New("error"))
	eng.now = func() time.Time { return now }
	return eng, events, rules
}

func seedEvent(t *testing.T, store *memory.EventStore, ts time.Time, severity models.EventSeverity, siteID string) {
	t.Helper()
	err := store.Insert(context.Background(), &models.Event{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Source:      models.SourceFirewall,
		EventType:   "login_failure",
		Severity:    severity,
		Description: "failed login",
		Status:      models.StatusNew,
		SiteID:      siteID,
	})
	require.NoError(t, err)
}

func thresholdRule(count int, timeframe string) *models.AlertRule {
	return &models.AlertRule{
		ID:      uuid.NewString(),
		Name:    "brute force",
		Enabled: true,
		Condition: models.RuleCondition{
			EventType: "login_failure",
			Count:     count,
			Timeframe: timeframe,
		},
		Action:   models.ActionLog,
		Severity: "high",
	}
}

func TestEvaluateThresholdWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	rule := thresholdRule(5, "10m")
	require.NoError(t, rules.Insert(ctx, rule))

	for i := 0; i < 4; i++ {
		seedEvent(t, events, now.Add(-time.Duration(i)*time.Minute), models.SeverityHigh, "site-1")
	}

	match, err := eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.False(t, match, "4 of 5 within window must not fire")

	// a fifth event, but outside the window
	seedEvent(t, events, now.Add(-11*time.Minute), models.SeverityHigh, "site-1")
	match, err = eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.False(t, match, "event outside window must not count")

	seedEvent(t, events, now.Add(-2*time.Minute), models.SeverityHigh, "site-1")
	match, err = eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.True(t, match, "5 within window must fire")
}

func TestEvaluateAllRulesFiresEveryPass(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	rule := thresholdRule(2, "1h")
	require.NoError(t, rules.Insert(ctx, rule))
	seedEvent(t, events, now.Add(-time.Minute), models.SeverityHigh, "site-1")
	seedEvent(t, events, now.Add(-2*time.Minute), models.SeverityHigh, "site-1")

	triggered, err := eng.EvaluateAllRules(ctx)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, 1, triggered[0].TriggerCount)

	// condition still holds, so the next pass fires again
	triggered, err = eng.EvaluateAllRules(ctx)
	require.NoError(t, err)
	require.Len(t, triggered, 1)

	stored, err := rules.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TriggerCount)
	require.NotNil(t, stored.LastTriggered)
	assert.Equal(t, now.UTC(), stored.LastTriggered.UTC())
}

func TestEvaluateAllRulesSkipsDisabled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	rule := thresholdRule(1, "1h")
	rule.Enabled = false
	require.NoError(t, rules.Insert(ctx, rule))
	seedEvent(t, events, now, models.SeverityHigh, "site-1")

	triggered, err := eng.EvaluateAllRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, triggered)
}

func TestCheckEventAgainstRulesPrefilters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	siteRule := thresholdRule(1, "1h")
	siteRule.Condition.SiteID = "site-2"
	require.NoError(t, rules.Insert(ctx, siteRule))

	anyRule := thresholdRule(1, "1h")
	anyRule.Condition.SiteID = models.Any
	require.NoError(t, rules.Insert(ctx, anyRule))

	event := &models.Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Source:    models.SourceFirewall,
		EventType: "login_failure",
		Severity:  models.SeverityHigh,
		SiteID:    "site-1",
		Status:    models.StatusNew,
	}
	require.NoError(t, events.Insert(ctx, event))

	triggered, err := eng.CheckEventAgainstRules(ctx, event)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, anyRule.ID, triggered[0].ID)
}

func TestFilterForSkipsInvalidEnums(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	// legacy row: unknown severity predates creation-time validation
	rule := thresholdRule(1, "1h")
	rule.Condition.Severity = "catastrophic"
	require.NoError(t, rules.Insert(ctx, rule))
	seedEvent(t, events, now, models.SeverityLow, "site-1")

	match, err := eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.True(t, match, "unknown severity filter is skipped, not fatal")
}

func TestEvaluateDefaultsThresholdToOne(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng, events, rules := testEngine(t, now)
	ctx := context.Background()

	rule := thresholdRule(0, "1h")
	require.NoError(t, rules.Insert(ctx, rule))

	match, err := eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.False(t, match)

	seedEvent(t, events, now, models.SeverityLow, "site-1")
	match, err = eng.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.True(t, match)
}
