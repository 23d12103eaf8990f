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

func TestRetentionPurgesOnlyOldResolved(t *testing.T) {
	events := memory.NewEventStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	insert := func(status models.EventStatus, updatedAt time.Time) string {
		id := uuid.NewString()
		require.NoError(t, events.Insert(ctx, &models.Event{
			ID:        id,
			Timestamp: updatedAt,
			Source:    models.SourceIDS,
			EventType: "probe",
			Severity:  models.SeverityLow,
			Status:    status,
			UpdatedAt: updatedAt,
		}))
		return id
	}

	oldResolved := insert(models.StatusResolved, now.Add(-100*24*time.Hour))
	freshResolved := insert(models.StatusResolved, now.Add(-24*time.Hour))
	oldOpen := insert(models.StatusNew, now.Add(-100*24*time.Hour))

	job := NewRetentionJob(events, 90*24*time.Hour, time.Hour, logger.New("error"))
	job.now = func() time.Time { return now }
	job.purge(ctx)

	_, err := events.Get(ctx, oldResolved)
	assert.Error(t, err, "resolved event past the window must be gone")
	_, err = events.Get(ctx, freshResolved)
	assert.NoError(t, err)
	_, err = events.Get(ctx, oldOpen)
	assert.NoError(t, err, "open events are never purged")
}
