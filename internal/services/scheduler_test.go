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
	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

func TestSchedulerRunsPasses(t *testing.T) {
	log := logger.New("error")
	events := memory.NewEventStore()
	rules := memory.NewRuleStore()
	engine := NewAlertEngine(events, rules, log)
	hub := &recordingHub{}
	notifier := NewNotifier(&fakeTransport{}, hub, 16, 1, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rule := &models.AlertRule{
		ID:        uuid.NewString(),
		Name:      "always firing",
		Enabled:   true,
		Condition: models.RuleCondition{EventType: "probe", Count: 1, Timeframe: "1h"},
		Action:    models.ActionLog,
	}
	require.NoError(t, rules.Insert(ctx, rule))
	require.NoError(t, events.Insert(ctx, &models.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    models.SourceIDS,
		EventType: "probe",
		Severity:  models.SeverityLow,
		Status:    models.StatusNew,
	}))

	notifier.Start(ctx)
	sched := NewScheduler(engine, notifier, cache.NewNoopValkey(log), 20*time.Millisecond, log)
	go sched.Run(ctx)

	require.Eventually(t, func() bool {
		return hub.alertCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerSkipsTickWhenPassInFlight(t *testing.T) {
	log := logger.New("error")
	engine := NewAlertEngine(memory.NewEventStore(), memory.NewRuleStore(), log)
	notifier := NewNotifier(&fakeTransport{}, &recordingHub{}, 16, 1, log)
	sched := NewScheduler(engine, notifier, cache.NewNoopValkey(log), 20*time.Millisecond, log)

	sched.inFlight.Store(true)
	sched.tick(context.Background())
	assert.True(t, sched.inFlight.Load(), "skipped tick must not clear the in-flight flag")
}

func TestSchedulerYieldsWhenLockHeld(t *testing.T) {
	log := logger.New("error")
	c := cache.NewNoopValkey(log)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, evaluateLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	engine := NewAlertEngine(memory.NewEventStore(), memory.NewRuleStore(), log)
	notifier := NewNotifier(&fakeTransport{}, &recordingHub{}, 16, 1, log)
	sched := NewScheduler(engine, notifier, c, 20*time.Millisecond, log)

	sched.tick(ctx)
	assert.False(t, sched.inFlight.Load(), "lock loss must release the in-flight flag")
}

func TestSchedulerSetIntervalNonBlocking(t *testing.T) {
	log := logger.New("error")
	engine := NewAlertEngine(memory.NewEventStore(), memory.NewRuleStore(), log)
	notifier := NewNotifier(&fakeTransport{}, &recordingHub{}, 16, 1, log)
	sched := NewScheduler(engine, notifier, cache.NewNoopValkey(log), time.Second, log)

	// nobody draining the channel; both calls must return immediately
	sched.SetInterval(2 * time.Second)
	sched.SetInterval(3 * time.Second)
	sched.SetInterval(0) // ignored
}
