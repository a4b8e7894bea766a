package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix      = "job:"
	jobQueueKeyPrefix = "jobs:queue:"
	jobStatusPrefix   = "jobs:status:"
)

// RedisJobRepository implements JobRepository using Redis lists as queues
type RedisJobRepository struct {
	client *redis.Client
}

// NewRedisJobRepository creates a new Redis-based job repository
func NewRedisJobRepository(client *redis.Client) *RedisJobRepository {
	return &RedisJobRepository{client: client}
}

// CreateJob stores a new job
func (r *RedisJobRepository) CreateJob(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	return r.write(ctx, job, "create_job")
}

// GetJob retrieves a job by ID
func (r *RedisJobRepository) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := r.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, JobNotFoundError(jobID)
	}
	if err != nil {
		return nil, NewJobRepositoryError("get_job", jobID, err, "")
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, NewJobRepositoryError("get_job", jobID, err, "failed to unmarshal job")
	}

	return &job, nil
}

// UpdateJob overwrites the stored job
func (r *RedisJobRepository) UpdateJob(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	return r.write(ctx, job, "update_job")
}

// UpdateJobStatus updates status, progress and message in one step
func (r *RedisJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, progress int, message string) error {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	oldStatus := job.Status
	job.Status = status
	job.Progress = progress
	job.Message = message

	now := time.Now()
	if status == JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.IsTerminal() {
		job.CompletedAt = &now
	}

	if err := r.write(ctx, job, "update_job_status"); err != nil {
		return err
	}

	if oldStatus != status {
		pipe := r.client.TxPipeline()
		pipe.SRem(ctx, jobStatusPrefix+string(oldStatus), jobID)
		pipe.SAdd(ctx, jobStatusPrefix+string(status), jobID)
		if _, err := pipe.Exec(ctx); err != nil {
			return NewJobRepositoryError("update_job_status", jobID, err, "")
		}
	}

	return nil
}

// EnqueueJob stores the job and pushes it onto its type queue
func (r *RedisJobRepository) EnqueueJob(ctx context.Context, job *Job) error {
	job.Status = JobStatusQueued
	if err := r.CreateJob(ctx, job); err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, jobQueueKeyPrefix+string(job.Type), job.ID)
	pipe.SAdd(ctx, jobStatusPrefix+string(JobStatusQueued), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewJobRepositoryError("enqueue_job", job.ID, err, "")
	}

	return nil
}

// DequeueJob pops the next queued job of the given type, or nil when the
// queue is empty
func (r *RedisJobRepository) DequeueJob(ctx context.Context, jobType JobType) (*Job, error) {
	jobID, err := r.client.RPop(ctx, jobQueueKeyPrefix+string(jobType)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, NewJobRepositoryError("dequeue_job", "", err, "")
	}

	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := r.UpdateJobStatus(ctx, jobID, JobStatusProcessing, job.Progress, "job dequeued"); err != nil {
		return nil, err
	}

	return r.GetJob(ctx, jobID)
}

// ListJobsByStatus returns all jobs with the given status
func (r *RedisJobRepository) ListJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error) {
	ids, err := r.client.SMembers(ctx, jobStatusPrefix+string(status)).Result()
	if err != nil {
		return nil, NewJobRepositoryError("list_jobs_by_status", "", err, "")
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetJob(ctx, id)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Ping checks if Redis is alive
func (r *RedisJobRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisJobRepository) write(ctx context.Context, job *Job, operation string) error {
	job.UpdatedAt = time.Now()

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return NewJobRepositoryError(operation, job.ID, err, "failed to marshal job")
	}

	if err := r.client.Set(ctx, jobKeyPrefix+job.ID, jobJSON, 0).Err(); err != nil {
		return NewJobRepositoryError(operation, job.ID, err, "")
	}

	return nil
}
