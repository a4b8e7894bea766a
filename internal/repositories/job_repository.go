package repositories

import (
	"context"
	"time"
)

// JobRepository defines the interface for the background ingest job queue
type JobRepository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, progress int, message string) error

	// Queue operations
	EnqueueJob(ctx context.Context, job *Job) error
	DequeueJob(ctx context.Context, jobType JobType) (*Job, error)

	// Queries
	ListJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error)

	// Health
	Ping(ctx context.Context) error
}

// Job represents a background job in the queue
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"` // 0-100
	Message     string                 `json:"message"`
	Payload     map[string]interface{} `json:"payload"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
	WorkerID    string                 `json:"worker_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// JobType represents the type of job
type JobType string

const (
	JobTypeDocumentIngest JobType = "document_ingest"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// IsValid checks if the job type is known
func (t JobType) IsValid() bool {
	return t == JobTypeDocumentIngest
}

// IsValid checks if the job status is known
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusRetrying:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a terminal state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanRetry returns true if the job can be retried
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// Validate checks if the job is valid
func (j *Job) Validate() error {
	if j.ID == "" {
		return InvalidJobError("", "job ID is required")
	}
	if !j.Type.IsValid() {
		return InvalidJobError(j.ID, "invalid job type: "+string(j.Type))
	}
	if !j.Status.IsValid() {
		return InvalidJobError(j.ID, "invalid job status: "+string(j.Status))
	}
	if j.Progress < 0 || j.Progress > 100 {
		return InvalidJobError(j.ID, "progress must be between 0 and 100")
	}
	return nil
}

// IngestJobPayload represents the payload for document ingest jobs
type IngestJobPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
	FileSize   int64  `json:"file_size"`
	Collection string `json:"collection"`
}

// JobRepositoryError represents errors from the job repository
type JobRepositoryError struct {
	Operation string
	JobID     string
	Err       error
	Message   string
}

func (e *JobRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.JobID != "" {
		prefix += " (job: " + e.JobID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *JobRepositoryError) Unwrap() error {
	return e.Err
}

// NewJobRepositoryError creates a new job repository error
func NewJobRepositoryError(operation string, jobID string, err error, message string) *JobRepositoryError {
	return &JobRepositoryError{
		Operation: operation,
		JobID:     jobID,
		Err:       err,
		Message:   message,
	}
}

// JobNotFoundError reports a missing job
func JobNotFoundError(jobID string) error {
	return NewJobRepositoryError("get_job", jobID, nil, "job not found: "+jobID)
}

// InvalidJobError reports a job that failed validation
func InvalidJobError(jobID string, reason string) error {
	return NewJobRepositoryError("validate_job", jobID, nil, "invalid job: "+reason)
}
