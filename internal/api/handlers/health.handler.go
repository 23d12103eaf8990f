package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// Pinger is satisfied by the database client.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	cache   cache.Valkey
	logger  logger.Logger
	started time.Time
}

func NewHealthHandler(db Pinger, c cache.Valkey, log logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: c, logger: log, started: time.Now()}
}

// GET /health - liveness: the process is up and serving.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).String(),
	})
}

// GET /ready - readiness: dependencies answer. Cache trouble degrades, only
// database trouble makes the service not ready.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			ready = false
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if err := h.cache.HealthCheck(ctx); err != nil {
		checks["cache"] = "degraded: " + err.Error()
	} else {
		checks["cache"] = "healthy"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
