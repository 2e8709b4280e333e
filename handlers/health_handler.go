package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
)

// HealthHandler reports process and dependency health for probes.
type HealthHandler struct {
	db      store.PGXQuerier
	redis   *redis.Client
	version string
}

func NewHealthHandler(db store.PGXQuerier, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redisClient,
		version: version,
	}
}

// LivenessCheck handles kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ReadinessCheck handles kubernetes readiness probe. The service is ready
// only when the database responds; Redis is reported but not required,
// the rate limiter fails open without it.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	log := logger.GetLogger()
	ctx := c.Request.Context()

	components := gin.H{}
	status := http.StatusOK

	dbStart := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		log.Warnw("Database health check failed", "error", err)
		components["database"] = gin.H{"status": "down"}
		status = http.StatusServiceUnavailable
	} else {
		components["database"] = gin.H{
			"status":     "up",
			"latency_ms": time.Since(dbStart).Milliseconds(),
		}
	}

	redisStart := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Warnw("Redis health check failed", "error", err)
		components["redis"] = gin.H{"status": "down"}
	} else {
		components["redis"] = gin.H{
			"status":     "up",
			"latency_ms": time.Since(redisStart).Milliseconds(),
		}
	}

	overall := "up"
	if status != http.StatusOK {
		overall = "down"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"version":    h.version,
		"components": components,
	})
}
