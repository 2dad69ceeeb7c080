package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ottie-ai/scrapequeue/internal/api/dto"
	"github.com/ottie-ai/scrapequeue/internal/domain"
	"github.com/ottie-ai/scrapequeue/internal/jobstore"
)

// Caller tier values set by the queue auth middleware. The scheduler tier
// gets the stats precheck before any processing; direct callers (the
// client-after-enqueue and the self-retrigger) act unconditionally.
const (
	CallerTierKey = "caller_tier"
	TierDirect    = "direct"
	TierScheduler = "scheduler"
)

// ProcessQueue handles POST /api/v1/queue/process - the trigger endpoint
// reached by direct callers, the self-retrigger, and the fallback sweep.
func (h *QueueHandler) ProcessQueue(c *gin.Context) {
	tier := c.GetString(CallerTierKey)

	// Body is optional; only the scheduler sends a batch size.
	var req dto.ProcessQueueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request body",
			})
			return
		}
	}

	if tier == TierScheduler {
		h.processAsScheduler(c, req.Batch)
		return
	}

	h.processOne(c, false)
}

// processAsScheduler applies the sweep guard before doing any work: an
// empty queue means nothing to do, and a non-empty processing set means the
// self-triggering chain is already alive and must not be raced.
func (h *QueueHandler) processAsScheduler(c *gin.Context, batch int) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read queue stats",
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Queue index unavailable",
		})
		return
	}

	if stats.QueueLength == 0 && stats.ProcessingCount == 0 {
		c.JSON(http.StatusOK, dto.ProcessQueueResponse{
			Success: true,
			Skipped: true,
			Message: "Queue empty, nothing to do",
		})
		return
	}

	if stats.ProcessingCount > 0 {
		c.JSON(http.StatusOK, dto.ProcessQueueResponse{
			Success: true,
			Skipped: true,
			Message: "Processing chain already active",
		})
		return
	}

	// Stall-recovery path: queued work with no active chain.
	if batch > 1 {
		if batch > h.maxBatchSize {
			batch = h.maxBatchSize
		}

		processed, err := h.worker.ProcessBatch(c.Request.Context(), batch)
		if err != nil {
			h.logger.Error("Batch processing failed",
				slog.Int("processed", processed),
				slog.Any("error", err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Batch processing failed",
			})
			return
		}

		c.JSON(http.StatusOK, dto.ProcessQueueResponse{
			Success:   true,
			Message:   "Batch processed",
			Processed: processed,
		})
		return
	}

	h.processOne(c, true)
}

// processOne runs a single ProcessNextJob invocation and renders the result
func (h *QueueHandler) processOne(c *gin.Context, scheduler bool) {
	result, err := h.worker.ProcessNextJob(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQueue) {
			if scheduler {
				// Lost a race with a live chain between the stats read
				// and the dequeue; still a clean skip.
				c.JSON(http.StatusOK, dto.ProcessQueueResponse{
					Success: true,
					Skipped: true,
					Message: "Queue empty, nothing to do",
				})
				return
			}

			c.JSON(http.StatusNotFound, dto.ProcessQueueResponse{
				Success: false,
				Message: "No jobs in queue",
			})
			return
		}

		h.logger.Error("Failed to process job",
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to process job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ProcessQueueResponse{
		Success: true,
		Message: "Job processed",
		JobID:   result.JobID,
		Status:  result.Status,
	})
}

// GetQueueStats handles GET /api/v1/queue/process
func (h *QueueHandler) GetQueueStats(c *gin.Context) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read queue stats",
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Queue index unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Success: true,
		Stats:   stats,
	})
}

// EnqueueJob handles POST /api/v1/queue/jobs
// Creates the job row first, then pushes the id onto the queue index, so a
// dequeued id always has a row behind it.
func (h *QueueHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid enqueue request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "source_url must be a valid URL",
		})
		return
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:     uuid.New().String(),
		SourceURL: req.SourceURL,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create job",
		})
		return
	}

	if err := h.index.Enqueue(c.Request.Context(), job.JobID); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to enqueue job",
		})
		return
	}

	position, err := h.index.Position(c.Request.Context(), job.JobID)
	if err != nil {
		// Position is informational; the job is already safely queued.
		h.logger.Warn("Failed to read queue position",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		position = 0
	}

	c.JSON(http.StatusCreated, dto.EnqueueJobResponse{
		Success:       true,
		JobID:         job.JobID,
		Status:        job.Status,
		QueuePosition: position,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	})
}

// JobStatus handles GET /api/v1/queue/status/:job_id
// Read-only projection combining job store status with queue position.
func (h *QueueHandler) JobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Job not found",
			})
			return
		}

		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get job",
		})
		return
	}

	resp := dto.JobStatusResponse{
		Success:      true,
		JobID:        job.JobID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}

	if job.Status == domain.JobStatusQueued {
		if position, err := h.index.Position(c.Request.Context(), jobID); err == nil {
			resp.QueuePosition = &position
		}
	}

	if processing, err := h.index.IsProcessing(c.Request.Context(), jobID); err == nil {
		resp.Processing = processing
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs handles GET /api/v1/queue/jobs
// Cursor-paginated listing for the dashboard.
func (h *QueueHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid cursor",
		})
		return
	}

	filter := jobstore.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			JobID:        job.JobID,
			SourceURL:    job.SourceURL,
			Status:       job.Status,
			ErrorMessage: job.ErrorMessage,
			CreatedAt:    job.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&jobstore.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}
