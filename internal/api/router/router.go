package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ottie-ai/scrapequeue/internal/api/handler"
)

// AuthConfig carries the trigger endpoint trust-tier secrets
type AuthConfig struct {
	InternalToken string
	SchedulerKey  string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, auth *AuthConfig) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	queueHandler := handler.NewQueueHandler(deps)

	r.GET("/health", queueHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		q := v1.Group("/queue")
		{
			// POST /api/v1/queue/jobs - Enqueue a scrape job
			q.POST("/jobs", queueHandler.EnqueueJob)

			// GET /api/v1/queue/jobs - List jobs with filtering and pagination
			q.GET("/jobs", queueHandler.ListJobs)

			// GET /api/v1/queue/status/:job_id - Job status projection
			q.GET("/status/:job_id", queueHandler.JobStatus)

			// The trigger endpoint sits behind the two-tier auth check.
			authed := q.Group("/process", QueueAuthMiddleware(auth.InternalToken, auth.SchedulerKey))
			{
				// POST /api/v1/queue/process - Trigger processing
				authed.POST("", queueHandler.ProcessQueue)

				// GET /api/v1/queue/process - Queue stats
				authed.GET("", queueHandler.GetQueueStats)
			}
		}
	}

	return r
}
