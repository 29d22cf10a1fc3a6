package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency is reachable
type Checker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	checks      map[string]Checker
	version     string
	environment string
	started     time.Time
}

// NewHealthHandler creates a health handler over the named dependency checks
func NewHealthHandler(checks map[string]Checker, version, environment string) *HealthHandler {
	return &HealthHandler{
		checks:      checks,
		version:     version,
		environment: environment,
		started:     time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	components := gin.H{}
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			components[name] = "unhealthy"
			continue
		}
		components[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":      overall,
		"components":  components,
		"timestamp":   time.Now().UTC(),
		"version":     h.version,
		"environment": h.environment,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}
