package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ottie-ai/scrapequeue/internal/domain"
)

// Storage handles all scrape_jobs persistence. Only the worker writes a
// given job's terminal state, so last-write-wins per row is acceptable.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a new scrape job in queued status
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO scrape_jobs (
			job_id, source_url, status, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, '', $4, $5
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.SourceURL,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its ID
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT job_id, source_url, status, result, error_message,
		       created_at, updated_at, completed_at
		FROM scrape_jobs
		WHERE job_id = $1
	`

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// MarkProcessing transitions a job from queued to processing. The status
// guard in the WHERE clause keeps the transition monotonic even if two
// invocations race on the same id.
func (s *Storage) MarkProcessing(ctx context.Context, jobID string) error {
	query := `
		UPDATE scrape_jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, jobID, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrNotProcessable
	}

	return nil
}

// WriteResult writes a terminal status to a job row. payload carries the
// scraped property data on completion and is nil on failure.
func (s *Storage) WriteResult(ctx context.Context, jobID, status string, payload []byte, errorMsg string) error {
	query := `
		UPDATE scrape_jobs
		SET status = $1,
		    result = $2,
		    error_message = $3,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $4
	`

	_, err := s.db.ExecContext(ctx, query, status, payload, errorMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to write job result: %w", err)
	}

	s.logger.Info("Job result written",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// JobFilter narrows and paginates job listings
type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is the (created_at, job_id) keyset cursor for listing pages
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns jobs newest-first, fetching one row beyond the page size
// so the caller can tell whether more results exist.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT job_id, source_url, status, result, error_message,
		       created_at, updated_at, completed_at
		FROM scrape_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
