package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ottie-ai/scrapequeue/internal/domain"
	"github.com/ottie-ai/scrapequeue/internal/events"
	"github.com/ottie-ai/scrapequeue/internal/scraper"
)

// QueueIndex is the ordered-pending + processing-set structure the worker
// drains. Implemented by internal/queue.Index.
type QueueIndex interface {
	DequeueNext(ctx context.Context) (string, error)
	MarkProcessing(ctx context.Context, jobID string) error
	ClearProcessing(ctx context.Context, jobID string) error
}

// JobStore is the persisted job record the worker reads and finalizes.
// Implemented by internal/jobstore.Storage.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, jobID string) error
	WriteResult(ctx context.Context, jobID, status string, payload []byte, errorMsg string) error
}

// EventPublisher emits terminal job events. Implemented by events.Publisher.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *events.JobEvent) error
}

// Dispatcher fires the self-retrigger that continues the processing chain.
// Dispatch must not block on the outcome of the call it starts.
type Dispatcher interface {
	Dispatch()
}

// Result is the outcome of processing one job. Status is the terminal
// status written to the job store; a failed job is still a successfully
// processed one from the chain's point of view.
type Result struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Config holds worker dependencies
type Config struct {
	Logger     *slog.Logger
	Index      QueueIndex
	Store      JobStore
	Executor   scraper.Executor
	Publisher  EventPublisher
	Dispatcher Dispatcher
}

// Worker processes one job per invocation: dequeue, mark processing,
// execute, persist, clear the marker, and retrigger the next invocation.
// There is no resident loop; the chain of short invocations is the loop.
type Worker struct {
	logger     *slog.Logger
	index      QueueIndex
	store      JobStore
	executor   scraper.Executor
	publisher  EventPublisher
	dispatcher Dispatcher
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:     cfg.Logger,
		index:      cfg.Index,
		store:      cfg.Store,
		executor:   cfg.Executor,
		publisher:  cfg.Publisher,
		dispatcher: cfg.Dispatcher,
	}
}

// ProcessNextJob pops and processes the head of the queue, then fires the
// self-retrigger. Returns domain.ErrEmptyQueue when there is nothing to do;
// that outcome never retriggers since there is nothing to chain to. Any
// other error return means the queue index itself was unreachable.
func (w *Worker) ProcessNextJob(ctx context.Context) (*Result, error) {
	jobID, err := w.index.DequeueNext(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyQueue) {
			w.logger.Error("Failed to dequeue job",
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	result := w.runJob(ctx, jobID)

	// Fire-and-forget: this invocation's result does not depend on the
	// next link in the chain.
	if w.dispatcher != nil {
		w.dispatcher.Dispatch()
	}

	return result, nil
}

// ProcessBatch drains up to n jobs sequentially and returns the count
// actually processed. Used by the fallback sweep when jobs back up; it does
// not retrigger per job, so a burst never multiplies concurrent chains.
func (w *Worker) ProcessBatch(ctx context.Context, n int) (int, error) {
	processed := 0

	for processed < n {
		jobID, err := w.index.DequeueNext(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyQueue) {
				return processed, nil
			}
			return processed, err
		}

		w.runJob(ctx, jobID)
		processed++
	}

	return processed, nil
}

// runJob drives a single dequeued job to a terminal state. Executor and
// persistence failures are folded into the job record, never returned, so
// one bad job cannot stop the chain. The processing marker is cleared on
// every path out of this function.
func (w *Worker) runJob(ctx context.Context, jobID string) *Result {
	w.logger.Info("Processing job",
		slog.String("job_id", jobID),
	)

	if err := w.index.MarkProcessing(ctx, jobID); err != nil {
		w.logger.Error("Failed to set processing marker",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}

	defer func() {
		if err := w.index.ClearProcessing(ctx, jobID); err != nil {
			w.logger.Error("Failed to clear processing marker",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}()

	job, err := w.store.GetJobByID(ctx, jobID)
	if err != nil {
		// A dangling id in the index must not block the queue.
		w.logger.Error("Dequeued job has no store record",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return &Result{
			JobID:        jobID,
			Status:       domain.JobStatusFailed,
			ErrorMessage: "job record not found",
		}
	}

	if err := w.store.MarkProcessing(ctx, jobID); err != nil {
		// Log only: a repeated trigger may race us here, and the job is
		// already exclusively ours via the atomic dequeue.
		w.logger.Warn("Failed to mark job processing in store",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}

	result := &Result{JobID: jobID}

	data, execErr := w.executor.Scrape(ctx, job.SourceURL)
	if execErr != nil {
		w.logger.Error("Scrape execution failed",
			slog.String("job_id", jobID),
			slog.String("source_url", job.SourceURL),
			slog.Any("error", execErr),
		)

		result.Status = domain.JobStatusFailed
		result.ErrorMessage = execErr.Error()
	} else {
		result.Status = domain.JobStatusCompleted
	}

	var payload []byte
	if execErr == nil {
		payload, err = json.Marshal(data)
		if err != nil {
			w.logger.Error("Failed to marshal scrape result",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			result.Status = domain.JobStatusFailed
			result.ErrorMessage = "failed to encode scrape result"
		}
	}

	if err := w.store.WriteResult(ctx, jobID, result.Status, payload, result.ErrorMessage); err != nil {
		// The processing marker is still cleared by the deferred call; a
		// lost write leaves the row stale but never wedges the queue.
		w.logger.Error("Failed to persist job result",
			slog.String("job_id", jobID),
			slog.String("status", result.Status),
			slog.Any("error", err),
		)
	}

	w.publishEvent(ctx, job, result)

	w.logger.Info("Job processed",
		slog.String("job_id", jobID),
		slog.String("status", result.Status),
	)

	return result
}

// publishEvent emits the terminal event; failures are logged only
func (w *Worker) publishEvent(ctx context.Context, job *domain.Job, result *Result) {
	if w.publisher == nil {
		return
	}

	event := &events.JobEvent{
		JobID:        result.JobID,
		SourceURL:    job.SourceURL,
		Status:       result.Status,
		ErrorMessage: result.ErrorMessage,
		OccurredAt:   time.Now().UTC(),
	}

	if err := w.publisher.PublishJobEvent(ctx, event); err != nil {
		w.logger.Warn("Failed to publish job event",
			slog.String("job_id", result.JobID),
			slog.Any("error", err),
		)
	}
}
