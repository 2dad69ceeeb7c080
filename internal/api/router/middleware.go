package router

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ottie-ai/scrapequeue/internal/api/handler"
	"github.com/ottie-ai/scrapequeue/internal/worker"
)

// SchedulerKeyHeader authorizes the periodic fallback sweep tier
const SchedulerKeyHeader = "X-Scheduler-Key"

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("error", e.Error()),
				)
			}
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Internal-Token, X-Scheduler-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// QueueAuthMiddleware enforces the trigger endpoint's two trust tiers: the
// shared internal token (self-retrigger, client-after-enqueue) and the
// scheduler key (fallback sweep). Anything else is rejected. This is a
// coarse trust boundary, not a user auth system.
func QueueAuthMiddleware(internalToken, schedulerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.GetHeader(worker.InternalTokenHeader); token != "" {
			if subtle.ConstantTimeCompare([]byte(token), []byte(internalToken)) == 1 {
				c.Set(handler.CallerTierKey, handler.TierDirect)
				c.Next()
				return
			}
		}

		if key := c.GetHeader(SchedulerKeyHeader); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(schedulerKey)) == 1 {
				c.Set(handler.CallerTierKey, handler.TierScheduler)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Unauthorized",
		})
	}
}
