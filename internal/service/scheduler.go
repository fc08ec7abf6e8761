package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/internal/dto"
	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

const runGuardTTL = 48 * time.Hour

type jobExecutor interface {
	Run(ctx context.Context, run dto.JobRun) (dto.JobRun, error)
}

// SchedulerConfig tunes the recurring job loop.
type SchedulerConfig struct {
	TickInterval time.Duration
	// ScanTime is the local HH:MM at which the status scan becomes due.
	ScanTime string
	Location *time.Location
}

// Scheduler ticks periodically and starts each daily job once its time of
// day has passed. Dispatch becomes due at the configured send time and then
// applies its own day and frequency rules.
type Scheduler struct {
	runner jobExecutor
	config configProvider
	guard  RunGuard
	logger *zap.Logger
	cfg    SchedulerConfig
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner jobExecutor, config configProvider, guard RunGuard, logger *zap.Logger, cfg SchedulerConfig) *Scheduler {
	if guard == nil {
		guard = NewMemoryRunGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if _, _, ok := models.ParseClock(cfg.ScanTime); !ok {
		cfg.ScanTime = "02:00"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{runner: runner, config: config, guard: guard, logger: logger, cfg: cfg, now: time.Now}
}

// Start launches the tick loop. Calling Start twice has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		s.Tick(ctx, s.now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx, s.now())
			}
		}
	}()
	s.logger.Sugar().Infow("scheduler started", "tick", s.cfg.TickInterval, "scan_time", s.cfg.ScanTime, "timezone", s.cfg.Location.String())
}

// Stop ends the loop and waits for a running tick to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

// Tick runs every job that is due at now and not yet run on now's local
// day. It returns the job types it started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	local := now.In(s.cfg.Location)
	cfg := s.config.Get(ctx)

	due := []struct {
		job   string
		clock string
	}{
		{JobStatusScan, s.cfg.ScanTime},
		{JobDispatch, cfg.SendTime},
	}

	var started []string
	for _, d := range due {
		if ctx.Err() != nil {
			break
		}
		if !clockReached(local, d.clock) {
			continue
		}
		key := d.job + ":" + local.Format("2006-01-02")
		ok, err := s.guard.Acquire(ctx, key, runGuardTTL)
		if err != nil {
			s.logger.Sugar().Warnw("scheduler guard unavailable", "job", d.job, "error", err)
			continue
		}
		if !ok {
			continue
		}
		started = append(started, d.job)
		_, _ = s.runner.Run(ctx, dto.JobRun{
			ID:       uuid.NewString(),
			Type:     d.job,
			Trigger:  TriggerSchedule,
			QueuedAt: now.UTC(),
		})
	}
	return started
}

// clockReached reports whether local is at or after the HH:MM clock on its day.
func clockReached(local time.Time, clock string) bool {
	hour, minute, ok := models.ParseClock(clock)
	if !ok {
		return false
	}
	return local.Hour() > hour || (local.Hour() == hour && local.Minute() >= minute)
}
