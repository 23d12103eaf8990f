package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

type recordingHub struct {
	mu     sync.Mutex
	events []*models.Event
	alerts []interface{}
}

func (h *recordingHub) PublishEvent(e *models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHub) PublishAlert(p interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, p)
}

func (h *recordingHub) alertCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.alerts)
}

type fakeTransport struct {
	mu       sync.Mutex
	emails   [][]string
	webhooks []string
	fail     bool
}

func (f *fakeTransport) SendEmail(_ context.Context, recipients []string, _, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, recipients)
	return !f.fail
}

func (f *fakeTransport) SendWebhook(_ context.Context, url string, _ interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, url)
	return !f.fail
}

func TestDispatchEmail(t *testing.T) {
	hub := &recordingHub{}
	tr := &fakeTransport{}
	n := NewNotifier(tr, hub, 8, 1, logger.New("error"))

	rule := &models.AlertRule{
		ID:       uuid.NewString(),
		Name:     "vpn anomalies",
		Action:   models.ActionEmail,
		Severity: "critical",
		ActionConfig: models.ActionConfig{
			Recipients: []string{"soc@example.com"},
		},
	}
	n.Dispatch(context.Background(), rule)

	require.Len(t, tr.emails, 1)
	assert.Equal(t, []string{"soc@example.com"}, tr.emails[0])
	assert.Equal(t, 1, hub.alertCount())
}

func TestDispatchWebhook(t *testing.T) {
	hub := &recordingHub{}
	tr := &fakeTransport{}
	n := NewNotifier(tr, hub, 8, 1, logger.New("error"))

	rule := &models.AlertRule{
		ID:           uuid.NewString(),
		Name:         "port scan",
		Action:       models.ActionWebhook,
		Severity:     "high",
		ActionConfig: models.ActionConfig{URL: "https://hooks.example.com/soc"},
	}
	n.Dispatch(context.Background(), rule)

	require.Len(t, tr.webhooks, 1)
	assert.Equal(t, "https://hooks.example.com/soc", tr.webhooks[0])
}

func TestDispatchEmailWithoutRecipientsSkipsTransport(t *testing.T) {
	hub := &recordingHub{}
	tr := &fakeTransport{}
	n := NewNotifier(tr, hub, 8, 1, logger.New("error"))

	rule := &models.AlertRule{
		ID:     uuid.NewString(),
		Name:   "misconfigured",
		Action: models.ActionEmail,
	}
	n.Dispatch(context.Background(), rule)
	assert.Empty(t, tr.emails)
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	hub := &recordingHub{}
	tr := &fakeTransport{}
	n := NewNotifier(tr, hub, 16, 2, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	for i := 0; i < 5; i++ {
		n.Enqueue(&models.AlertRule{
			ID:     uuid.NewString(),
			Name:   "burst",
			Action: models.ActionLog,
		})
	}

	require.Eventually(t, func() bool {
		return hub.alertCount() == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	hub := &recordingHub{}
	tr := &fakeTransport{}
	// no workers started: the queue fills and stays full
	n := NewNotifier(tr, hub, 1, 1, logger.New("error"))

	rule := &models.AlertRule{ID: uuid.NewString(), Name: "r", Action: models.ActionLog}
	n.Enqueue(rule)
	n.Enqueue(rule)

	assert.Len(t, n.queue, 1)
}

func TestStandardTransportWebhook(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr := NewStandardTransport(SMTPSettings{}, 2*time.Second, logger.New("error"))
	ok := tr.SendWebhook(context.Background(), srv.URL, map[string]string{"message": "hi"})
	assert.True(t, ok)
	assert.Equal(t, "hi", gotBody["message"])
}

func TestStandardTransportWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewStandardTransport(SMTPSettings{}, 2*time.Second, logger.New("error"))
	assert.False(t, tr.SendWebhook(context.Background(), srv.URL, nil))
}

func TestStandardTransportEmailUnconfigured(t *testing.T) {
	tr := NewStandardTransport(SMTPSettings{}, time.Second, logger.New("error"))
	assert.False(t, tr.SendEmail(context.Background(), []string{"a@b.c"}, "s", "b"))
}

func TestFormatAlertMessage(t *testing.T) {
	rule := &models.AlertRule{
		Name:     "brute force",
		Severity: "high",
		Condition: models.RuleCondition{
			EventType: "login_failure",
			Count:     5,
			Timeframe: "10m",
		},
	}
	msg := FormatAlertMessage(rule)
	assert.Contains(t, msg, "Alert Rule Triggered: brute force")
	assert.Contains(t, msg, "Severity: HIGH")
	assert.Contains(t, msg, "count>=5")
	assert.Contains(t, msg, "event_type=login_failure")
	assert.Contains(t, msg, "within 10m")
}
