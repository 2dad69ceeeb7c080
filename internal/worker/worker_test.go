package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottie-ai/scrapequeue/internal/domain"
	"github.com/ottie-ai/scrapequeue/internal/events"
	"github.com/ottie-ai/scrapequeue/internal/queue"
	"github.com/ottie-ai/scrapequeue/shared/logger"
)

type fakeStore struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	writeErr error
	writes   []string // statuses written, in order
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeStore) addJob(id, sourceURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &domain.Job{
		JobID:     id,
		SourceURL: sourceURL,
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now(),
	}
}

func (s *fakeStore) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *fakeStore) MarkProcessing(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return domain.ErrNotProcessable
	}
	job.Status = domain.JobStatusProcessing
	return nil
}

func (s *fakeStore) WriteResult(ctx context.Context, jobID, status string, payload []byte, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	job.Result = payload
	job.ErrorMessage = errorMsg
	s.writes = append(s.writes, status)
	return nil
}

type fakeExecutor struct {
	scrape func(ctx context.Context, sourceURL string) (*domain.PropertyData, error)
}

func (e *fakeExecutor) Scrape(ctx context.Context, sourceURL string) (*domain.PropertyData, error) {
	return e.scrape(ctx, sourceURL)
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
}

func (d *fakeDispatcher) Dispatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.JobEvent
}

func (p *fakePublisher) PublishJobEvent(ctx context.Context, event *events.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type workerFixture struct {
	worker     *Worker
	index      *queue.Index
	store      *fakeStore
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
}

func newWorkerFixture(t *testing.T, exec *fakeExecutor) *workerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewDefault().Logger
	idx := queue.NewIndex(rdb, log)
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	publisher := &fakePublisher{}

	w := NewWorker(&Config{
		Logger:     log,
		Index:      idx,
		Store:      store,
		Executor:   exec,
		Publisher:  publisher,
		Dispatcher: dispatcher,
	})

	return &workerFixture{
		worker:     w,
		index:      idx,
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

func okExecutor() *fakeExecutor {
	return &fakeExecutor{
		scrape: func(ctx context.Context, sourceURL string) (*domain.PropertyData, error) {
			return &domain.PropertyData{
				SourceURL: sourceURL,
				Title:     "Test Listing",
				Provider:  "general",
			}, nil
		},
	}
}

func TestProcessNextJob_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	result, err := f.worker.ProcessNextJob(ctx)
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)
	assert.Nil(t, result)

	// Terminal outcome: nothing to chain to, no marker mutation.
	assert.Equal(t, 0, f.dispatcher.count())

	stats, err := f.index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ProcessingCount)
}

func TestProcessNextJob_Success(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	f.store.addJob("job-a", "https://example.com/listing/1")
	require.NoError(t, f.index.Enqueue(ctx, "job-a"))

	result, err := f.worker.ProcessNextJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "job-a", result.JobID)
	assert.Equal(t, domain.JobStatusCompleted, result.Status)
	assert.Empty(t, result.ErrorMessage)

	job, err := f.store.GetJobByID(ctx, "job-a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)

	var data domain.PropertyData
	require.NoError(t, json.Unmarshal(job.Result, &data))
	assert.Equal(t, "Test Listing", data.Title)

	// Marker cleared, retrigger fired exactly once.
	processing, err := f.index.IsProcessing(ctx, "job-a")
	require.NoError(t, err)
	assert.False(t, processing)
	assert.Equal(t, 1, f.dispatcher.count())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.JobStatusCompleted, f.publisher.events[0].Status)
}

func TestProcessNextJob_ExecutorFailure(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, &fakeExecutor{
		scrape: func(ctx context.Context, sourceURL string) (*domain.PropertyData, error) {
			return nil, errors.New("provider timeout")
		},
	})

	f.store.addJob("job-a", "https://example.com/listing/1")
	require.NoError(t, f.index.Enqueue(ctx, "job-a"))

	result, err := f.worker.ProcessNextJob(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusFailed, result.Status)
	assert.Equal(t, "provider timeout", result.ErrorMessage)

	job, err := f.store.GetJobByID(ctx, "job-a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.ErrorMessage)

	// One bad job never stops the chain.
	processing, err := f.index.IsProcessing(ctx, "job-a")
	require.NoError(t, err)
	assert.False(t, processing)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestProcessNextJob_DanglingID(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	// Index entry without a store row.
	require.NoError(t, f.index.Enqueue(ctx, "ghost"))

	result, err := f.worker.ProcessNextJob(ctx)
	require.NoError(t, err)

	assert.Equal(t, "ghost", result.JobID)
	assert.Equal(t, domain.JobStatusFailed, result.Status)
	assert.Equal(t, "job record not found", result.ErrorMessage)

	processing, err := f.index.IsProcessing(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, processing)

	// The chain still continues past the inconsistency.
	assert.Equal(t, 1, f.dispatcher.count())
	assert.Empty(t, f.store.writes)
}

func TestProcessNextJob_PersistFailureStillClearsMarker(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	f.store.addJob("job-a", "https://example.com/listing/1")
	f.store.writeErr = errors.New("db down")
	require.NoError(t, f.index.Enqueue(ctx, "job-a"))

	result, err := f.worker.ProcessNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, result.Status)

	processing, err := f.index.IsProcessing(ctx, "job-a")
	require.NoError(t, err)
	assert.False(t, processing)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestProcessBatch_DrainsSequentially(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	for n := 0; n < 3; n++ {
		id := fmt.Sprintf("job-%d", n)
		f.store.addJob(id, "https://example.com/listing/"+id)
		require.NoError(t, f.index.Enqueue(ctx, id))
	}

	processed, err := f.worker.ProcessBatch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	// Batch mode never fires per-job retriggers.
	assert.Equal(t, 0, f.dispatcher.count())
	assert.Equal(t, []string{
		domain.JobStatusCompleted,
		domain.JobStatusCompleted,
		domain.JobStatusCompleted,
	}, f.store.writes)

	stats, err := f.index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.QueueLength)
	assert.Equal(t, int64(0), stats.ProcessingCount)
}

func TestProcessBatch_StopsAtCap(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	for n := 0; n < 3; n++ {
		id := fmt.Sprintf("job-%d", n)
		f.store.addJob(id, "https://example.com/listing/"+id)
		require.NoError(t, f.index.Enqueue(ctx, id))
	}

	processed, err := f.worker.ProcessBatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	stats, err := f.index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.QueueLength)
}

func TestProcessBatch_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, okExecutor())

	processed, err := f.worker.ProcessBatch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}
