package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"hybrid-rag/internal/repositories"
)

// Ingestor runs the ingestion pipeline for one queued job
type Ingestor interface {
	ProcessJob(ctx context.Context, job *repositories.Job) error
}

// Logger defines the interface for worker logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// IngestWorker drains the document-ingest queue and feeds each job
// through the ingestion pipeline
type IngestWorker struct {
	*BaseWorker
	jobRepo  repositories.JobRepository
	ingestor Ingestor
	logger   Logger
}

// IngestWorkerConfig holds configuration for the ingest worker
type IngestWorkerConfig struct {
	WorkerConfig WorkerConfig
	JobRepo      repositories.JobRepository
	Ingestor     Ingestor
	Logger       Logger
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(config IngestWorkerConfig) *IngestWorker {
	logger := config.Logger
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &IngestWorker{
		BaseWorker: NewBaseWorker(config.WorkerConfig),
		jobRepo:    config.JobRepo,
		ingestor:   config.Ingestor,
		logger:     logger,
	}
}

// Start begins processing ingest jobs
func (w *IngestWorker) Start(ctx context.Context) error {
	if w.IsRunning() {
		return NewWorkerError(w.Name(), "start", nil, "worker already running")
	}

	w.setRunning(true)
	w.logger.Info("Starting ingest worker: %s", w.Name())

	for i := 0; i < w.config.Concurrency; i++ {
		go w.processJobs(ctx, i)
	}

	return nil
}

// Stop gracefully shuts down the worker
func (w *IngestWorker) Stop(ctx context.Context) error {
	if !w.IsRunning() {
		return nil
	}

	w.logger.Info("Stopping ingest worker: %s", w.Name())
	w.setRunning(false)
	return nil
}

func (w *IngestWorker) processJobs(ctx context.Context, goroutineID int) {
	workerName := fmt.Sprintf("%s-goroutine-%d", w.Name(), goroutineID)
	w.logger.Info("Worker goroutine started: %s", workerName)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping: %s", workerName)
			return

		case <-ticker.C:
			if !w.IsRunning() {
				return
			}

			job, err := w.jobRepo.DequeueJob(ctx, repositories.JobTypeDocumentIngest)
			if err != nil {
				w.logger.Error("Failed to dequeue job: %v", err)
				continue
			}
			if job == nil {
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

func (w *IngestWorker) processJob(ctx context.Context, job *repositories.Job) {
	startTime := time.Now()
	w.logger.Info("Processing job: %s (type: %s)", job.ID, job.Type)

	job.WorkerID = w.Name()
	if err := w.jobRepo.UpdateJobStatus(ctx, job.ID, repositories.JobStatusProcessing, 10, "Ingesting document"); err != nil {
		w.logger.Warn("Failed to mark job processing: %v", err)
	}

	var err error
	if w.config.EnableRecovery {
		err = w.processWithRecovery(ctx, job)
	} else {
		err = w.ingestor.ProcessJob(ctx, job)
	}

	if err != nil {
		w.handleJobFailure(ctx, job, err, startTime)
	} else {
		w.handleJobSuccess(ctx, job, startTime)
	}
}

func (w *IngestWorker) processWithRecovery(ctx context.Context, job *repositories.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerPanicError{Panic: r}
			w.logger.Error("Panic in job processing: %v", r)
		}
	}()
	return w.ingestor.ProcessJob(ctx, job)
}

func (w *IngestWorker) handleJobSuccess(ctx context.Context, job *repositories.Job, startTime time.Time) {
	w.recordJobSuccess(startTime)

	job.Status = repositories.JobStatusCompleted
	job.Progress = 100
	job.Message = "Document ingested successfully"
	now := time.Now()
	job.CompletedAt = &now
	if err := w.jobRepo.UpdateJob(ctx, job); err != nil {
		w.logger.Error("Failed to update completed job: %v", err)
	}

	w.logger.Info("Job completed: %s (duration: %v)", job.ID, time.Since(startTime))
}

func (w *IngestWorker) handleJobFailure(ctx context.Context, job *repositories.Job, jobErr error, startTime time.Time) {
	w.recordJobFailure(startTime)

	freshJob, err := w.jobRepo.GetJob(ctx, job.ID)
	if err != nil {
		w.logger.Error("Failed to load job for retry check: %v", err)
		return
	}

	freshJob.RetryCount++
	freshJob.Error = jobErr.Error()

	if freshJob.RetryCount <= freshJob.MaxRetries {
		w.logger.Warn("Job failed, will retry (%d/%d): %s - %v",
			freshJob.RetryCount, freshJob.MaxRetries, freshJob.ID, jobErr)

		freshJob.Status = repositories.JobStatusRetrying
		freshJob.Message = fmt.Sprintf("Failed: %v. Retry %d/%d", jobErr, freshJob.RetryCount, freshJob.MaxRetries)
		if err := w.jobRepo.UpdateJob(ctx, freshJob); err != nil {
			w.logger.Error("Failed to update job retry count: %v", err)
			return
		}

		time.Sleep(w.config.RetryDelay)
		freshJob.Status = repositories.JobStatusQueued
		if err := w.jobRepo.EnqueueJob(ctx, freshJob); err != nil {
			w.logger.Error("Failed to re-enqueue job: %v", err)
		}
		return
	}

	w.logger.Error("Job failed permanently after %d retries: %s - %v",
		freshJob.MaxRetries, freshJob.ID, jobErr)

	freshJob.Status = repositories.JobStatusFailed
	freshJob.Message = fmt.Sprintf("Failed permanently after %d retries: %v", freshJob.MaxRetries, jobErr)
	if err := w.jobRepo.UpdateJob(ctx, freshJob); err != nil {
		w.logger.Error("Failed to update job to failed status: %v", err)
	}
}

// DefaultLogger writes worker logs with level prefixes
type DefaultLogger struct{}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] "+msg, args...)
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] "+msg, args...)
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] "+msg, args...)
}
