package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	memory ccmemory.Memory
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(m ccmemory.Memory) *HealthHandler {
	return &HealthHandler{memory: m}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "ccmemory",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "ccmemory",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready - verifies the store answers queries
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "ccmemory",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}
	checks := response["checks"].(gin.H)
	ready := true

	if h.memory != nil {
		start := time.Now()
		// A metrics query on a probe project exercises the store without
		// side effects.
		_, err := h.memory.Metrics(ctx, types.Scope{Project: "health-check"})
		duration := time.Since(start)

		if err != nil && ctx.Err() != nil {
			checks["store"] = gin.H{
				"status":   "unhealthy",
				"error":    "store query timeout",
				"duration": duration.String(),
			}
			ready = false
		} else if err != nil {
			checks["store"] = gin.H{
				"status":   "unhealthy",
				"error":    err.Error(),
				"duration": duration.String(),
			}
			ready = false
		} else {
			checks["store"] = gin.H{
				"status":   "healthy",
				"duration": duration.String(),
			}
		}
	} else {
		checks["store"] = gin.H{
			"status": "unhealthy",
			"error":  "memory client not initialized",
		}
		ready = false
	}

	checks["system"] = gin.H{
		"status":     "healthy",
		"goroutines": runtime.NumGoroutine(),
	}

	if !ready {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
