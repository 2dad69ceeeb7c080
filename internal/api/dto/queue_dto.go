package dto

// EnqueueJobRequest is the body of POST /api/v1/queue/jobs
type EnqueueJobRequest struct {
	SourceURL string `json:"source_url" binding:"required,url"`
}

// EnqueueJobResponse returns the created job and its initial position
type EnqueueJobResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
	CreatedAt     string `json:"created_at"`
}

// ProcessQueueRequest is the optional body of POST /api/v1/queue/process
type ProcessQueueRequest struct {
	Batch int `json:"batch"`
}

// ProcessQueueResponse reports the outcome of one trigger invocation
type ProcessQueueResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	JobID     string `json:"job_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Processed int    `json:"processed,omitempty"`
}

// StatsResponse is the body of GET /api/v1/queue/process
type StatsResponse struct {
	Success bool        `json:"success"`
	Stats   interface{} `json:"stats"`
}

// JobStatusResponse combines job store status with queue index position.
// QueuePosition is set only while the job is still queued.
type JobStatusResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	QueuePosition *int   `json:"queue_position"`
	Processing    bool   `json:"processing"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ListJobsRequest carries listing filters and pagination
type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListJobsResponse is a page of jobs with an optional continuation cursor
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// JobDTO is the job projection returned by the listing endpoint
type JobDTO struct {
	JobID        string `json:"job_id"`
	SourceURL    string `json:"source_url"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
