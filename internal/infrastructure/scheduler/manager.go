// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"traino/internal/shared/biztime"
	"traino/internal/shared/logger"
)

// SweepJob defines the interface for the periodic reconciliation job.
// Each Execute call runs one sweep and returns the number of rows touched.
type SweepJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSweepJob registers the capacity reconciliation sweep:
// - Deactivate plan assignments past their expiration
// - Expire tokens past their expiration and free their bindings
// - Lapse consumers whose binding validity has passed
// The sweep runs on the configured interval and fires once at startup so a
// restarted instance converges immediately.
func (m *SchedulerManager) RegisterSweepJob(sweep SweepJob, interval, timeout time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m.runSweep(ctx, sweep)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("capacity", "sweep"),
		gocron.WithName("capacity-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered capacity sweep job", "interval", interval)
	return nil
}

func (m *SchedulerManager) runSweep(ctx context.Context, sweep SweepJob) {
	m.logger.Debugw("capacity sweep started")

	startTime := biztime.NowUTC()

	touched, err := sweep.Execute(ctx)
	if err != nil {
		// Don't log error if context was cancelled (graceful shutdown)
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("capacity sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if touched > 0 {
		m.logger.Infow("capacity sweep completed",
			"touched", touched,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("capacity sweep found nothing to reconcile",
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
