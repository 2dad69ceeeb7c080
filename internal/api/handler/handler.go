package handler

import (
	"context"
	"log/slog"

	"github.com/ottie-ai/scrapequeue/internal/domain"
	"github.com/ottie-ai/scrapequeue/internal/jobstore"
	"github.com/ottie-ai/scrapequeue/internal/queue"
	"github.com/ottie-ai/scrapequeue/internal/worker"
)

// JobStore is the persistence surface the handlers need
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter jobstore.JobFilter) ([]domain.Job, error)
}

// QueueIndex is the queue surface the handlers need
type QueueIndex interface {
	Enqueue(ctx context.Context, jobID string) error
	Position(ctx context.Context, jobID string) (int, error)
	IsProcessing(ctx context.Context, jobID string) (bool, error)
	Stats(ctx context.Context) (*queue.Stats, error)
}

// QueueWorker advances the queue by one job or one batch
type QueueWorker interface {
	ProcessNextJob(ctx context.Context) (*worker.Result, error)
	ProcessBatch(ctx context.Context, n int) (int, error)
}

// HealthChecker reports reachability of a backing service
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        JobStore
	Index        QueueIndex
	Worker       QueueWorker
	MaxBatchSize int

	// Health probes; either may be nil when the backing service is not
	// wired (tests, degraded tooling).
	DBHealth    HealthChecker
	RedisHealth HealthChecker
}

// QueueHandler handles queue-related HTTP requests
type QueueHandler struct {
	logger       *slog.Logger
	store        JobStore
	index        QueueIndex
	worker       QueueWorker
	maxBatchSize int
	dbHealth     HealthChecker
	redisHealth  HealthChecker
}

// NewQueueHandler creates a new QueueHandler instance
func NewQueueHandler(deps *Dependencies) *QueueHandler {
	maxBatch := deps.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 10
	}

	return &QueueHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		index:        deps.Index,
		worker:       deps.Worker,
		maxBatchSize: maxBatch,
		dbHealth:     deps.DBHealth,
		redisHealth:  deps.RedisHealth,
	}
}
