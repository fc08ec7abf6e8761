package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
)

// Background job types.
const (
	JobDispatch    = "dispatch"
	JobStatusScan  = "status_scan"
	JobContactSync = "contact_sync"
)

// Job triggers.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Job run states besides the batch outcomes.
const (
	JobRunQueued  = "queued"
	JobRunRunning = "running"
)

type dispatcher interface {
	RunWeeklyDispatch(ctx context.Context, now time.Time) (*dto.DispatchResult, error)
	Dispatch(ctx context.Context) (*dto.DispatchResult, error)
}

type statusScanner interface {
	RunDailyScan(ctx context.Context, now time.Time) (*dto.ScanResult, error)
}

type contactSyncer interface {
	Sync(ctx context.Context) (*dto.SyncResult, error)
}

// JobRunner executes batch jobs and records their outcome in metrics, the
// result store and the event stream.
type JobRunner struct {
	dispatch dispatcher
	scan     statusScanner
	sync     contactSyncer
	results  *JobResultStore
	metrics  *MetricsService
	events   events.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobRunner constructs a JobRunner. sync may be nil when contact import is
// not configured.
func NewJobRunner(dispatch dispatcher, scan statusScanner, sync contactSyncer, results *JobResultStore, metrics *MetricsService, publisher events.Publisher, logger *zap.Logger) *JobRunner {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if results == nil {
		results = NewJobResultStore(nil, 0, logger)
	}
	return &JobRunner{
		dispatch: dispatch,
		scan:     scan,
		sync:     sync,
		results:  results,
		metrics:  metrics,
		events:   publisher,
		logger:   logger,
		now:      time.Now,
	}
}

// Types lists the job types this runner can execute.
func (r *JobRunner) Types() []string {
	types := []string{JobDispatch, JobStatusScan}
	if r.sync != nil {
		types = append(types, JobContactSync)
	}
	return types
}

// Supports reports whether jobType can be executed.
func (r *JobRunner) Supports(jobType string) bool {
	for _, t := range r.Types() {
		if t == jobType {
			return true
		}
	}
	return false
}

// Run executes the job described by run and returns it completed.
func (r *JobRunner) Run(ctx context.Context, run dto.JobRun) (dto.JobRun, error) {
	if !r.Supports(run.Type) {
		return run, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown job type %q", run.Type))
	}
	if run.QueuedAt.IsZero() {
		run.QueuedAt = r.now().UTC()
	}
	run.Status = JobRunRunning
	r.results.Save(ctx, run)

	start := time.Now()
	result, outcome, err := r.execute(ctx, run)
	duration := time.Since(start)

	finished := r.now().UTC()
	run.FinishedAt = &finished
	run.Status = outcome
	run.Result = result
	if err != nil {
		run.Error = err.Error()
	}

	r.metrics.RecordBatchRun(run.Type, outcome, duration)
	r.results.Save(ctx, run)
	r.events.Publish(ctx, events.BatchCompleted, run)

	log := r.logger.Sugar().With("job", run.Type, "job_id", run.ID, "trigger", run.Trigger, "duration", duration)
	if err != nil {
		log.Errorw("job failed", "error", err)
	} else {
		log.Infow("job finished", "outcome", outcome)
	}
	return run, err
}

func (r *JobRunner) execute(ctx context.Context, run dto.JobRun) (interface{}, string, error) {
	switch run.Type {
	case JobDispatch:
		var (
			res *dto.DispatchResult
			err error
		)
		if run.Trigger == TriggerSchedule {
			res, err = r.dispatch.RunWeeklyDispatch(ctx, r.now())
		} else {
			res, err = r.dispatch.Dispatch(ctx)
		}
		if err != nil {
			return nil, BatchOutcomeFailed, err
		}
		if res.Skipped {
			return res, BatchOutcomeSkipped, nil
		}
		r.metrics.RecordBatchItems(JobDispatch, "success", res.SuccessCount)
		r.metrics.RecordBatchItems(JobDispatch, "error", res.ErrorCount)
		return res, BatchOutcomeCompleted, nil

	case JobStatusScan:
		res, err := r.scan.RunDailyScan(ctx, r.now())
		if err != nil {
			return nil, BatchOutcomeFailed, err
		}
		r.metrics.RecordBatchItems(JobStatusScan, "updated", res.Updated)
		r.metrics.RecordBatchItems(JobStatusScan, "unchanged", res.Scanned-res.Updated-res.Failed)
		r.metrics.RecordBatchItems(JobStatusScan, "error", res.Failed)
		return res, BatchOutcomeCompleted, nil

	case JobContactSync:
		res, err := r.sync.Sync(ctx)
		if res != nil {
			r.metrics.RecordBatchItems(JobContactSync, "saved", res.Saved)
			r.metrics.RecordBatchItems(JobContactSync, "skipped", res.Skipped)
			r.metrics.RecordBatchItems(JobContactSync, "error", res.Failed)
		}
		if err != nil {
			if res == nil {
				return nil, BatchOutcomeFailed, err
			}
			return res, BatchOutcomeFailed, err
		}
		return res, BatchOutcomeCompleted, nil
	}
	return nil, BatchOutcomeFailed, fmt.Errorf("unknown job type %q", run.Type)
}
