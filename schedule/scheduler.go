package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCheckInterval is how often the scheduling loop polls for due
// jobs when no interval is configured.
const DefaultCheckInterval = 60 * time.Second

// DefaultStopTimeout bounds how long Stop waits for the polling loop to
// exit.
const DefaultStopTimeout = 5 * time.Second

// Scheduler runs the background polling loop: it discovers due jobs,
// dispatches each onto its own goroutine, and recomputes job timing
// after every run. There is no cap on simultaneously executing jobs.
//
// Stop halts future dispatch only; in-flight executions run to
// completion detached from the loop. Drain waits for them.
type Scheduler struct {
	registry    *Registry
	executor    *Executor
	interval    time.Duration
	stopTimeout time.Duration
	logger      *zap.SugaredLogger

	parentCtx context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	jobsWG    sync.WaitGroup
	running   bool
	mu        sync.Mutex

	// now is swappable so tests can pin the poll clock
	now func() time.Time
}

// SchedulerConfig contains configuration for the scheduling loop.
type SchedulerConfig struct {
	CheckInterval time.Duration
	StopTimeout   time.Duration
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		CheckInterval: DefaultCheckInterval,
		StopTimeout:   DefaultStopTimeout,
	}
}

// NewScheduler creates a scheduler owned by the given parent context.
func NewScheduler(ctx context.Context, registry *Registry, executor *Executor, cfg SchedulerConfig, logger *zap.SugaredLogger) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Scheduler{
		registry:    registry,
		executor:    executor,
		interval:    cfg.CheckInterval,
		stopTimeout: cfg.StopTimeout,
		logger:      logger,
		parentCtx:   ctx,
		now:         time.Now,
	}
}

// Start launches the background polling loop. Idempotent: starting a
// running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warnw("Scheduler is already running")
		return
	}

	loopCtx, cancel := context.WithCancel(s.parentCtx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.running = true

	go s.run(loopCtx)

	s.logger.Infow("Scheduler started", "check_interval", s.interval)
}

// Stop signals the polling loop to exit and joins it within the stop
// timeout. Already-dispatched executions are not cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Warnw("Scheduler is not running")
		return
	}

	s.cancel()

	select {
	case <-s.loopDone:
	case <-time.After(s.stopTimeout):
		s.logger.Warnw("Scheduler loop did not exit before timeout", "timeout", s.stopTimeout)
	}

	s.running = false
	s.logger.Infow("Scheduler stopped")
}

// IsRunning reports whether the polling loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Drain blocks until every dispatched execution has finished, or ctx
// expires. Call after Stop for a clean shutdown.
func (s *Scheduler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.jobsWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the polling loop: check due jobs, then sleep until the next
// tick or until cancelled.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.loopDone)

	s.logger.Infow("Scheduler loop started")

	s.recoverOrphanedJobs(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.checkDueJobs(ctx)

		select {
		case <-ctx.Done():
			s.logger.Infow("Scheduler loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// recoverOrphanedJobs resets jobs left in the running state by a crash
// mid-execution. Their next_run is stale, so they re-trigger on the next
// poll; execution is at-least-once across restarts.
func (s *Scheduler) recoverOrphanedJobs(ctx context.Context) {
	jobs, err := s.registry.List(ctx, false)
	if err != nil {
		s.logger.Errorw("Failed to list jobs for orphan recovery", "error", err)
		return
	}

	for _, job := range jobs {
		if job.Status != StatusRunning {
			continue
		}
		job.Status = StatusPending
		if err := s.registry.Update(ctx, job); err != nil {
			s.logger.Errorw("Failed to recover orphaned job",
				"job_id", job.ID,
				"error", err)
			continue
		}
		s.logger.Warnw("Recovered orphaned job",
			"job_id", job.ID,
			"job_name", job.Name)
	}
}

// checkDueJobs fetches all active jobs and dispatches the due ones.
// Failures while checking or dispatching one job are logged at that
// job's granularity and never abort the loop.
func (s *Scheduler) checkDueJobs(ctx context.Context) {
	jobs, err := s.registry.GetActiveJobs(ctx)
	if err != nil {
		s.logger.Errorw("Failed to list active jobs", "error", err)
		return
	}

	now := s.now()

	for _, job := range jobs {
		if err := s.checkJob(ctx, job, now); err != nil {
			s.logger.Errorw("Error processing job",
				"job_id", job.ID,
				"job_name", job.Name,
				"error", err)
		}
	}
}

// checkJob initializes a job's next_run if unset, and dispatches it when
// due. The polling loop never waits on the dispatched execution.
func (s *Scheduler) checkJob(ctx context.Context, job *Job, now time.Time) error {
	if job.NextRun == nil {
		next, err := NextRunAfter(job.ScheduleTime, now)
		if err != nil {
			return err
		}
		job.NextRun = &next
		if err := s.registry.Update(ctx, job); err != nil {
			return err
		}
		s.logger.Infow("Initialized next run",
			"job_id", job.ID,
			"job_name", job.Name,
			"next_run", next)
	}

	// A job already marked running was dispatched by an earlier tick and
	// has not finished; dispatching again would double-execute it.
	if job.Status == StatusRunning {
		return nil
	}

	if !now.Before(*job.NextRun) {
		s.dispatch(job)
	}

	return nil
}

// dispatch launches one execution goroutine for a due job. The goroutine
// is detached from the loop context so Stop never cancels it, but is
// tracked so Drain can join it.
func (s *Scheduler) dispatch(job *Job) {
	s.jobsWG.Add(1)

	// Detached from loop cancellation: stopping the scheduler halts
	// future dispatch only, in-flight runs complete.
	execCtx := context.WithoutCancel(s.parentCtx)

	go func() {
		defer s.jobsWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("Job execution panicked",
					"job_id", job.ID,
					"job_name", job.Name,
					"panic", r)
				s.finishJob(execCtx, job, StatusFailed)
			}
		}()

		job.Status = StatusRunning
		if err := s.registry.Update(execCtx, job); err != nil {
			s.logger.Errorw("Failed to mark job running",
				"job_id", job.ID,
				"error", err)
		}

		record := s.executor.Execute(execCtx, job, TriggerScheduled)

		status := StatusCompleted
		if record.Status == ExecutionFailed {
			status = StatusFailed
		}
		s.finishJob(execCtx, job, status)
	}()
}

// finishJob stamps last_run, recomputes next_run from the schedule, sets
// the final status, and persists the job.
func (s *Scheduler) finishJob(ctx context.Context, job *Job, status JobStatus) {
	now := s.now()
	job.LastRun = &now
	job.Status = status

	next, err := NextRunAfter(job.ScheduleTime, now)
	if err != nil {
		s.logger.Errorw("Failed to compute next run",
			"job_id", job.ID,
			"error", err)
	} else {
		job.NextRun = &next
	}

	if err := s.registry.Update(ctx, job); err != nil {
		s.logger.Errorw("Failed to persist job after execution",
			"job_id", job.ID,
			"error", err)
		return
	}

	s.logger.Infow("Job executed",
		"job_id", job.ID,
		"job_name", job.Name,
		"status", status,
		"next_run", job.NextRun)
}
