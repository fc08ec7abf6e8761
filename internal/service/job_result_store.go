package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
)

type jobRunCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// JobResultStore keeps the latest run of each job type. Runs are kept in
// memory and mirrored to redis when a cache is configured.
type JobResultStore struct {
	cache  jobRunCache
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string]dto.JobRun
}

// NewJobResultStore constructs a store. cache may be nil.
func NewJobResultStore(cache jobRunCache, ttl time.Duration, logger *zap.Logger) *JobResultStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobResultStore{cache: cache, ttl: ttl, logger: logger, runs: make(map[string]dto.JobRun)}
}

func jobRunKey(jobType string) string {
	return "jobs:last:" + jobType
}

// Save records run as the latest of its type.
func (s *JobResultStore) Save(ctx context.Context, run dto.JobRun) {
	s.mu.Lock()
	s.runs[run.Type] = run
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, jobRunKey(run.Type), run, s.ttl); err != nil {
		s.logger.Warn("failed to store job run", zap.String("type", run.Type), zap.Error(err))
	}
}

// Last returns the latest run of jobType.
func (s *JobResultStore) Last(ctx context.Context, jobType string) (*dto.JobRun, bool) {
	if s.cache != nil {
		var run dto.JobRun
		if err := s.cache.Get(ctx, jobRunKey(jobType), &run); err == nil {
			return &run, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[jobType]
	if !ok {
		return nil, false
	}
	return &run, true
}
