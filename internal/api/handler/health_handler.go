package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health, probing the backing services
func (h *QueueHandler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if h.dbHealth != nil {
		if err := h.dbHealth.HealthCheck(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.redisHealth != nil {
		if err := h.redisHealth.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "healthy"
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "scrape-queue-api",
		"checks":  checks,
	})
}
