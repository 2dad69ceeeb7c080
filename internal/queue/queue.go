package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ottie-ai/scrapequeue/internal/domain"
)

const (
	// pendingKey is the FIFO list of job ids waiting to be processed.
	pendingKey = "scrape:queue:pending"
	// processingKey is the set of job ids currently being executed.
	processingKey = "scrape:queue:processing"
)

// Stats is the queue depth projection returned by the stats endpoint and
// used by the scheduler guard logic.
type Stats struct {
	QueueLength     int64 `json:"queue_length"`
	ProcessingCount int64 `json:"processing_count"`
}

// Index tracks pending and in-flight job ids in Redis. Ordering comes from
// the pending list; LPOP is the atomic dequeue primitive, so no id is ever
// handed to two callers. All mutation goes through these methods - the
// worker never touches the keys directly.
type Index struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewIndex creates a queue index over the given Redis client
func NewIndex(rdb *redis.Client, logger *slog.Logger) *Index {
	return &Index{
		rdb:    rdb,
		logger: logger,
	}
}

// Enqueue appends a job id to the tail of the pending list
func (i *Index) Enqueue(ctx context.Context, jobID string) error {
	if err := i.rdb.RPush(ctx, pendingKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	i.logger.Debug("Job enqueued",
		slog.String("job_id", jobID),
	)

	return nil
}

// DequeueNext atomically removes and returns the head of the pending list.
// Returns domain.ErrEmptyQueue when there is nothing to dequeue.
func (i *Index) DequeueNext(ctx context.Context) (string, error) {
	jobID, err := i.rdb.LPop(ctx, pendingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrEmptyQueue
		}
		return "", fmt.Errorf("failed to dequeue job: %w", err)
	}

	return jobID, nil
}

// MarkProcessing adds a job id to the processing set
func (i *Index) MarkProcessing(ctx context.Context, jobID string) error {
	if err := i.rdb.SAdd(ctx, processingKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	return nil
}

// ClearProcessing removes a job id from the processing set
func (i *Index) ClearProcessing(ctx context.Context, jobID string) error {
	if err := i.rdb.SRem(ctx, processingKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to clear processing marker: %w", err)
	}

	return nil
}

// IsProcessing reports whether a job id is in the processing set
func (i *Index) IsProcessing(ctx context.Context, jobID string) (bool, error) {
	member, err := i.rdb.SIsMember(ctx, processingKey, jobID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processing marker: %w", err)
	}

	return member, nil
}

// Position returns the 0-based index of a job id within the pending list.
// The linear scan is fine at expected queue depths (tens of jobs). Returns
// domain.ErrJobNotInQueue when the id is absent.
func (i *Index) Position(ctx context.Context, jobID string) (int, error) {
	ids, err := i.rdb.LRange(ctx, pendingKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending list: %w", err)
	}

	for pos, id := range ids {
		if id == jobID {
			return pos, nil
		}
	}

	return 0, domain.ErrJobNotInQueue
}

// Stats returns the current queue length and processing count
func (i *Index) Stats(ctx context.Context) (*Stats, error) {
	queueLength, err := i.rdb.LLen(ctx, pendingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue length: %w", err)
	}

	processingCount, err := i.rdb.SCard(ctx, processingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read processing count: %w", err)
	}

	return &Stats{
		QueueLength:     queueLength,
		ProcessingCount: processingCount,
	}, nil
}
