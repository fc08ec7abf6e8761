package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/jobs"
)

// JobService queues admin-triggered batch jobs on the background queue.
type JobService struct {
	queue   *jobs.Queue
	runner  *JobRunner
	results *JobResultStore
	logger  *zap.Logger
}

// NewJobService registers a queue handler for every job the runner supports.
func NewJobService(queue *jobs.Queue, runner *JobRunner, results *JobResultStore, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &JobService{queue: queue, runner: runner, results: results, logger: logger}
	for _, jobType := range runner.Types() {
		queue.Handle(jobType, s.handle)
	}
	return s
}

// handle runs a queued job. Only contact imports are handed back to the
// queue for retry; dispatches and scans must not be replayed.
func (s *JobService) handle(ctx context.Context, job jobs.Job) error {
	seed, ok := job.Payload.(dto.JobRun)
	if !ok || seed.ID == "" {
		seed = dto.JobRun{ID: job.ID, Type: job.Type, Trigger: TriggerManual, QueuedAt: job.Enqueued}
	}
	_, err := s.runner.Run(ctx, seed)
	if err != nil && job.Type == JobContactSync {
		return err
	}
	return nil
}

// Enqueue schedules jobType to run in the background.
func (s *JobService) Enqueue(ctx context.Context, jobType string) (*dto.JobRun, error) {
	if !s.runner.Supports(jobType) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown job type %q", jobType))
	}
	if s.queue.Running(jobType) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "job is already running")
	}

	run := dto.JobRun{ID: uuid.NewString(), Type: jobType, Trigger: TriggerManual, Status: JobRunQueued, QueuedAt: time.Now().UTC()}
	previous, hadPrevious := s.results.Last(ctx, jobType)
	// Recorded before enqueueing so the worker's updates always land last.
	s.results.Save(ctx, run)

	if _, err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: jobType, Payload: run, Enqueued: run.QueuedAt}); err != nil {
		if hadPrevious {
			s.results.Save(ctx, *previous)
		}
		switch {
		case errors.Is(err, jobs.ErrQueueFull):
			return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "job queue is full")
		case errors.Is(err, jobs.ErrUnknownType):
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown job type %q", jobType))
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to enqueue job")
		}
	}

	s.logger.Sugar().Infow("job enqueued", "job", jobType, "job_id", run.ID)
	return &run, nil
}

// Last returns the latest recorded run of jobType.
func (s *JobService) Last(ctx context.Context, jobType string) (*dto.JobRun, error) {
	if !s.runner.Supports(jobType) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown job type %q", jobType))
	}
	run, ok := s.results.Last(ctx, jobType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job has not run yet")
	}
	return run, nil
}
