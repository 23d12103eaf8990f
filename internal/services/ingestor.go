package services

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// maxRawLogBytes caps stored raw log payloads. Longer payloads are truncated
// at a rune boundary, never rejected.
const maxRawLogBytes = 10240

// Ingestor is the single write path for events: validation, sanitization,
// persistence, inline rule checks and realtime fan-out all happen here, in
// that order.
type Ingestor struct {
	events   storage.EventStore
	engine   *AlertEngine
	notifier *Notifier
	hub      Broadcaster
	logger   logger.Logger
	now      func() time.Time
}

func NewIngestor(events storage.EventStore, engine *AlertEngine, notifier *Notifier, hub Broadcaster, log logger.Logger) *Ingestor {
	return &Ingestor{
		events:   events,
		engine:   engine,
		notifier: notifier,
		hub:      hub,
		logger:   log,
		now:      time.Now,
	}
}

// Ingest validates and stores one event draft, then runs the inline rule
// check and publishes the event to websocket subscribers. Rule evaluation
// errors are logged, not returned: the event is already durable by then.
func (i *Ingestor) Ingest(ctx context.Context, draft *models.EventDraft) (*models.Event, error) {
	if err := draft.Validate(); err != nil {
		metrics.EventsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	draft.RawLog = SanitizeRawLog(draft.RawLog)

	event := models.NewEvent(draft, i.now().UTC())
	if err := i.events.Insert(ctx, event); err != nil {
		metrics.EventsRejected.WithLabelValues("storage").Inc()
		return nil, err
	}
	metrics.EventsIngested.WithLabelValues(string(event.Source), string(event.Severity)).Inc()

	triggered, err := i.engine.CheckEventAgainstRules(ctx, event)
	if err != nil {
		i.logger.Error("inline rule check failed", "event", event.ID, "error", err)
	}
	for _, rule := range triggered {
		i.notifier.Enqueue(rule)
	}

	i.hub.PublishEvent(event)
	return event, nil
}

// IngestBatch processes drafts independently: each bad draft is reported by
// its index and the rest still land.
func (i *Ingestor) IngestBatch(ctx context.Context, drafts []*models.EventDraft) *models.BatchResult {
	result := &models.BatchResult{}
	for idx, draft := range drafts {
		event, err := i.Ingest(ctx, draft)
		if err != nil {
			result.Errors = append(result.Errors, models.BatchItemError{Index: idx, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, event)
	}
	return result
}

// SanitizeRawLog strips control characters (keeping newline and tab) and
// truncates to maxRawLogBytes without splitting a rune.
func SanitizeRawLog(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if len(s) <= maxRawLogBytes {
		return s
	}
	cut := maxRawLogBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
