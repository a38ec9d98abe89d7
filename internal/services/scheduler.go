package services

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/config"
)

// Scheduler drives the background jobs: the snow-status poll on a fixed
// interval, the waste reminders once daily at a configured hour, and the
// geobase refresh weekly.
type Scheduler struct {
	batch   *Batch
	geobase *Geobase
	cfg     config.JobsConfig

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewScheduler creates the scheduler.
func NewScheduler(batch *Batch, geobase *Geobase, cfg config.JobsConfig) *Scheduler {
	return &Scheduler{
		batch:   batch,
		geobase: geobase,
		cfg:     cfg,
	}
}

// Start launches the job loops. A second call while running is a no-op; a
// stopped scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	// Each Start gets its own stop channel; loops from an earlier run hold
	// the already-closed one.
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	// The loops outlive any request, so the context must carry a logger.
	ctx = logging.EnsureLogger(ctx)

	logging.Infow(ctx, "scheduler: starting background jobs",
		"snow_interval", s.cfg.SnowCheckInterval,
		"waste_hour", s.cfg.WasteReminderHour,
		"geobase_period", s.cfg.GeobaseRefreshPeriod)

	go s.snowLoop(ctx, stop)
	go s.wasteLoop(ctx, stop)
	go s.geobaseLoop(ctx, stop)
}

// Stop signals every loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// IsRunning reports whether the loops are active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) snowLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.SnowCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, s.cfg.SnowCheckInterval)
			s.runJob(runCtx, "snow_check", func() { s.batch.CheckSnowStatuses(runCtx) })
			cancel()
		}
	}
}

// runJob isolates one job execution; a panicking run is logged and the loop
// keeps its cadence.
func (s *Scheduler) runJob(ctx context.Context, name string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			err, _ := errors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			logging.Errorw(ctx, "scheduler: recovered from job panic",
				"job", name, "error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
		}
	}()
	job()
}

// wasteLoop fires once per day at the configured local hour. Sleeping to the
// next boundary rather than ticking hourly keeps the send time stable across
// restarts.
func (s *Scheduler) wasteLoop(ctx context.Context, stop <-chan struct{}) {
	for {
		wait := untilNextHour(time.Now(), s.cfg.WasteReminderHour)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Hour)
			s.runJob(runCtx, "waste_reminders", func() { s.batch.SendWasteReminders(runCtx) })
			cancel()
		}
	}
}

func (s *Scheduler) geobaseLoop(ctx context.Context, stop <-chan struct{}) {
	// Refresh once at startup when stale, then on the weekly cadence.
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	if err := s.geobase.RefreshIfStale(startCtx); err != nil {
		logging.Warnw(ctx, "scheduler: initial geobase refresh failed", "error", err)
	}
	cancel()

	ticker := time.NewTicker(s.cfg.GeobaseRefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			s.runJob(runCtx, "geobase_refresh", func() {
				if _, err := s.geobase.Refresh(runCtx); err != nil {
					logging.Warnw(ctx, "scheduler: geobase refresh failed", "error", err)
				}
			})
			cancel()
		}
	}
}

// untilNextHour returns the duration until the next occurrence of the given
// local hour, at least one minute away.
func untilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now.Add(time.Minute)) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
