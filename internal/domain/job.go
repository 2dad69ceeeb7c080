package domain

import "time"

// Job status values. These must match the text values stored in the
// scrape_jobs table (scrape_jobs.status).
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job is one unit of scrape work, tracked through
// queued → processing → completed|failed.
type Job struct {
	JobID        string     `db:"job_id"`
	SourceURL    string     `db:"source_url"`
	Status       string     `db:"status"`
	Result       []byte     `db:"result"`
	ErrorMessage string     `db:"error_message"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// IsTerminal reports whether the job has reached a final status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// PropertyData is the normalized output of scraping one listing URL.
// The builder's import pipeline consumes this payload; the queue only
// persists it opaquely on the job row.
type PropertyData struct {
	SourceURL   string   `json:"source_url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	Address     string   `json:"address,omitempty"`
	Bedrooms    int      `json:"bedrooms,omitempty"`
	Bathrooms   int      `json:"bathrooms,omitempty"`
	AreaSqm     float64  `json:"area_sqm,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	Provider    string   `json:"provider"`
}
