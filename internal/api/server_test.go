package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/soc-core/internal/api/websocket"
	"github.com/sentinelsoc/soc-core/internal/config"
	"github.com/sentinelsoc/soc-core/internal/services"
	"github.com/sentinelsoc/soc-core/internal/storage/memory"
	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

type nullTransport struct{}

func (nullTransport) SendEmail(_ context.Context, _ []string, _, _ string) bool { return true }
func (nullTransport) SendWebhook(_ context.Context, _ string, _ interface{}) bool {
	return true
}

func testServer(t *testing.T) *Server {
	t.Helper()
	log := logger.New("error")
	events := memory.NewEventStore()
	rules := memory.NewRuleStore()
	playbooks := memory.NewPlaybookStore()

	hub := websocket.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	engine := services.NewAlertEngine(events, rules, log)
	notifier := services.NewNotifier(nullTransport{}, hub, 16, 1, log)
	notifier.Start(ctx)
	ingestor := services.NewIngestor(events, engine, notifier, hub, log)
	executor := services.NewPlaybookExecutor(playbooks, hub, log)

	cfg := &config.Config{
		Environment: "test",
		Port:        0,
		CORS:        config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit:   config.RateLimitConfig{Enabled: false},
	}

	return NewServer(cfg, log, cache.NewNoopValkey(log), Stores{
		Events:    events,
		Rules:     rules,
		Playbooks: playbooks,
	}, Services{
		Ingestor: ingestor,
		Engine:   engine,
		Executor: executor,
	}, hub, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIngestEndpoint(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest", map[string]interface{}{
		"source":      "firewall",
		"event_type":  "port_scan",
		"severity":    "high",
		"description": "sweep detected",
		"site_id":     "dc-east",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	event := decodeBody(t, rec)["event"].(map[string]interface{})
	id := event["id"].(string)
	require.NotEmpty(t, id)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/events/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestRejectsBadSeverity(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest", map[string]interface{}{
		"source":      "firewall",
		"event_type":  "port_scan",
		"severity":    "weird",
		"description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchIngestPartialFailure(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/batch", []map[string]interface{}{
		{"source": "ids", "event_type": "probe", "severity": "low", "description": "a"},
		{"source": "", "event_type": "probe", "severity": "low", "description": "b"},
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["created"])
	assert.Equal(t, float64(1), body["rejected"])
}

func TestBatchIngestAllRejected(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/batch", []map[string]interface{}{
		{"source": "", "event_type": "probe", "severity": "low", "description": "a"},
		{"source": "ids", "event_type": "probe", "severity": "weird", "description": "b"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, float64(0), body["created"])
	assert.Equal(t, float64(2), body["rejected"])
}

func TestEventStatusUpdate(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest", map[string]interface{}{
		"source": "ids", "event_type": "probe", "severity": "low", "description": "a",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["event"].(map[string]interface{})["id"].(string)

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/events/"+id+"/status", map[string]interface{}{
		"status":      "investigating",
		"assigned_to": "analyst2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	event := decodeBody(t, rec)["event"].(map[string]interface{})
	assert.Equal(t, "investigating", event["status"])
	assert.Equal(t, "analyst2", event["assigned_to"])

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/events/"+id+"/status", map[string]interface{}{
		"status": "teleported",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/events/nope/status", map[string]interface{}{
		"status": "resolved",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuleLifecycle(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", map[string]interface{}{
		"name":     "brute force",
		"action":   "log",
		"severity": "high",
		"condition": map[string]interface{}{
			"event_type": "login_failure",
			"count":      5,
			"timeframe":  "10m",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decodeBody(t, rec)["rule"].(map[string]interface{})
	id := rule["id"].(string)
	assert.Equal(t, true, rule["enabled"])

	// invalid timeframe rejected at creation
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", map[string]interface{}{
		"name":   "bad",
		"action": "log",
		"condition": map[string]interface{}{
			"timeframe": "5w",
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// email rules need recipients
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", map[string]interface{}{
		"name":   "no recipients",
		"action": "email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules/"+id+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["rule"].(map[string]interface{})["enabled"])

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules/"+id+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["would_trigger"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/alert-rules/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaybookLifecycle(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/playbooks", map[string]interface{}{
		"name":     "phishing response",
		"category": "incident",
		"steps": []map[string]interface{}{
			{"order": 2, "name": "notify users", "type": "manual"},
			{"order": 1, "name": "quarantine mail", "type": "manual"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	playbook := decodeBody(t, rec)["playbook"].(map[string]interface{})
	id := playbook["id"].(string)
	assert.Equal(t, "draft", playbook["status"])

	// executing a draft conflicts
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/execute", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decodeBody(t, rec)["playbook"].(map[string]interface{})["status"])

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/execute", map[string]interface{}{
		"started_by": "analyst1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	exec := decodeBody(t, rec)["execution"].(map[string]interface{})
	execID := exec["id"].(string)
	assert.Equal(t, "in_progress", exec["status"])

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/executions/"+execID+"/steps", map[string]interface{}{
		"step_index": 0,
		"status":     "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/executions/"+execID+"/abort", map[string]interface{}{
		"reason": "false positive",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	exec = decodeBody(t, rec)["execution"].(map[string]interface{})
	assert.Equal(t, "aborted", exec["status"])

	// duplicate strips runtime state and lands as a draft
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	dup := decodeBody(t, rec)["playbook"].(map[string]interface{})
	assert.Equal(t, "phishing response (Copy)", dup["name"])
	assert.Equal(t, "draft", dup["status"])

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/playbooks/"+id+"/toggle", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "archived is terminal")
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
