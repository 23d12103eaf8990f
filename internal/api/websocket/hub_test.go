package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// testClient builds a hub client with no underlying connection; tests read
// from the send channel directly.
func testClient(id string, hub *Hub, buffer int) *Client {
	return &Client{
		id:    id,
		hub:   hub,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]bool),
	}
}

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func registered(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients[c]
	}, time.Second, 5*time.Millisecond)
}

func inRoom(t *testing.T, hub *Hub, c *Client, room string) {
	t.Helper()
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.rooms[room][c]
	}, time.Second, 5*time.Millisecond)
}

func decode(t *testing.T, raw []byte) Message {
	t.Helper()
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestPublishEventReachesGlobalRoom(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := testClient("c1", hub, 8)
	registered(t, hub, c)

	hub.PublishEvent(&models.Event{ID: "e1", Severity: models.SeverityLow})

	select {
	case raw := <-c.send:
		assert.Equal(t, "new_event", decode(t, raw).Type)
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestSiteRoomScoping(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	east := testClient("east", hub, 8)
	west := testClient("west", hub, 8)
	registered(t, hub, east)
	registered(t, hub, west)
	hub.Subscribe(east, SiteRoom("dc-east"))
	inRoom(t, hub, east, SiteRoom("dc-east"))

	hub.PublishEvent(&models.Event{ID: "e1", SiteID: "dc-east", Severity: models.SeverityLow})

	// east gets the event twice: once via global, once via its site room
	require.Eventually(t, func() bool { return len(east.send) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, west.send, 1, "west only sees the global copy")
}

func TestSeverityRoomGetsAlertCopy(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	watcher := testClient("w", hub, 8)
	registered(t, hub, watcher)
	hub.Subscribe(watcher, SeverityRoom("critical"))
	inRoom(t, hub, watcher, SeverityRoom("critical"))

	hub.PublishEvent(&models.Event{ID: "e1", Severity: models.SeverityCritical})

	require.Eventually(t, func() bool { return len(watcher.send) == 2 }, time.Second, 5*time.Millisecond)
	types := map[string]bool{}
	types[decode(t, <-watcher.send).Type] = true
	types[decode(t, <-watcher.send).Type] = true
	assert.True(t, types["new_event"])
	assert.True(t, types["event_alert"])
}

func TestHighEventAlertsCriticalWatchers(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	watcher := testClient("w", hub, 8)
	registered(t, hub, watcher)
	hub.Subscribe(watcher, SeverityRoom("critical"))
	inRoom(t, hub, watcher, SeverityRoom("critical"))

	hub.PublishEvent(&models.Event{ID: "e1", Severity: models.SeverityHigh})

	// a high event alerts both severity rooms, not just its own
	require.Eventually(t, func() bool { return len(watcher.send) == 2 }, time.Second, 5*time.Millisecond)
	types := map[string]bool{}
	types[decode(t, <-watcher.send).Type] = true
	types[decode(t, <-watcher.send).Type] = true
	assert.True(t, types["new_event"])
	assert.True(t, types["event_alert"])
}

func TestMediumSeverityRaisesNoAlert(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	watcher := testClient("w", hub, 8)
	registered(t, hub, watcher)
	hub.Subscribe(watcher, SeverityRoom("critical"))
	inRoom(t, hub, watcher, SeverityRoom("critical"))

	hub.PublishEvent(&models.Event{ID: "e1", Severity: models.SeverityMedium})

	require.Eventually(t, func() bool { return len(watcher.send) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "new_event", decode(t, <-watcher.send).Type)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	slow := testClient("slow", hub, 1)
	registered(t, hub, slow)

	hub.PublishEvent(&models.Event{ID: "e1", Severity: models.SeverityLow}) // fills the buffer
	hub.PublishEvent(&models.Event{ID: "e2", Severity: models.SeverityLow}) // overflows, client dropped

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.False(t, hub.clients[slow])
	assert.False(t, hub.rooms[RoomGlobal][slow])
}

func TestUnsubscribeLeavesRoom(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := testClient("c", hub, 8)
	registered(t, hub, c)
	hub.Subscribe(c, SiteRoom("dc-east"))
	inRoom(t, hub, c, SiteRoom("dc-east"))

	hub.Unsubscribe(c, SiteRoom("dc-east"))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return !hub.rooms[SiteRoom("dc-east")][c]
	}, time.Second, 5*time.Millisecond)
}

func TestPublishAlertGoesGlobal(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := testClient("c", hub, 8)
	registered(t, hub, c)

	hub.PublishAlert(map[string]string{"message": "rule fired"})

	select {
	case raw := <-c.send:
		assert.Equal(t, "alert", decode(t, raw).Type)
	case <-time.After(time.Second):
		t.Fatal("no alert received")
	}
}

func TestRoomLabelCollapsesSites(t *testing.T) {
	assert.Equal(t, "global", roomLabel(RoomGlobal))
	assert.Equal(t, "site", roomLabel(SiteRoom("dc-east")))
	assert.Equal(t, "severity_high", roomLabel(SeverityRoom("high")))
}
