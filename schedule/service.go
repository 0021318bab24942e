package schedule

import (
	"context"

	"go.uber.org/zap"
)

// Service is the job management surface consumed by outer layers (HTTP,
// CLI). It composes the registries, executor, and scheduler; construct
// one per application at startup and pass it by reference.
type Service struct {
	registry  *Registry
	history   *HistoryRegistry
	executor  *Executor
	scheduler *Scheduler
	logger    *zap.SugaredLogger
}

// NewService wires the scheduling components into one surface.
func NewService(registry *Registry, history *HistoryRegistry, executor *Executor, scheduler *Scheduler, logger *zap.SugaredLogger) *Service {
	return &Service{
		registry:  registry,
		history:   history,
		executor:  executor,
		scheduler: scheduler,
		logger:    logger,
	}
}

// JobUpdate carries optional field changes for UpdateJob. Nil fields are
// left untouched; the merge happens against a fresh snapshot before the
// wholesale registry update.
type JobUpdate struct {
	Name         *string
	ItemIDs      []string
	ScheduleTime *string
	StartDate    *string
	EndDate      *string
	DurationDays *int
	IsActive     *bool
	Namespace    *string
}

// SchedulerStatus summarizes the scheduler and its job population.
type SchedulerStatus struct {
	Running    bool `json:"running"`
	ActiveJobs int  `json:"active_jobs_count"`
	TotalJobs  int  `json:"total_jobs_count"`
}

// CreateJob validates and persists a new job, returning its id.
func (s *Service) CreateJob(ctx context.Context, job *Job) (string, error) {
	return s.registry.Create(ctx, job)
}

// GetJob returns a job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.registry.Get(ctx, jobID)
}

// ListJobs returns all jobs, optionally only active ones.
func (s *Service) ListJobs(ctx context.Context, activeOnly bool) ([]*Job, error) {
	return s.registry.List(ctx, activeOnly)
}

// UpdateJob merges the provided fields into the job's current snapshot,
// revalidates, and persists it.
func (s *Service) UpdateJob(ctx context.Context, jobID string, update JobUpdate) (*Job, error) {
	job, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		job.Name = *update.Name
	}
	if update.ItemIDs != nil {
		job.ItemIDs = update.ItemIDs
	}
	if update.ScheduleTime != nil {
		job.ScheduleTime = *update.ScheduleTime
		// The schedule changed, so the cached trigger time is no longer
		// meaningful; the loop recomputes it on the next poll.
		job.NextRun = nil
	}
	if update.StartDate != nil {
		job.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		job.EndDate = *update.EndDate
	}
	if update.DurationDays != nil {
		job.DurationDays = update.DurationDays
	}
	if update.IsActive != nil {
		job.IsActive = *update.IsActive
		if job.IsActive {
			job.Status = StatusPending
		} else {
			job.Status = StatusPaused
		}
	}
	if update.Namespace != nil {
		job.Namespace = *update.Namespace
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := s.registry.Update(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// DeleteJob removes a job. Its execution history is not cascaded; it
// outlives the job until its retention TTL lapses.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	return s.registry.Delete(ctx, jobID)
}

// StartJob activates a paused job; it returns to pending and is picked
// up by the next poll.
func (s *Service) StartJob(ctx context.Context, jobID string) error {
	active := true
	_, err := s.UpdateJob(ctx, jobID, JobUpdate{IsActive: &active})
	return err
}

// StopJob deactivates a job, excluding it from scheduling.
func (s *Service) StopJob(ctx context.Context, jobID string) error {
	active := false
	_, err := s.UpdateJob(ctx, jobID, JobUpdate{IsActive: &active})
	return err
}

// RunJobNow executes a job immediately, outside its schedule, and
// updates its timing the same way a scheduled run does. The returned
// record carries the manual trigger marker.
func (s *Service) RunJobNow(ctx context.Context, jobID string) (*Execution, error) {
	job, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	job.Status = StatusRunning
	if err := s.registry.Update(ctx, job); err != nil {
		return nil, err
	}

	record := s.executor.Execute(ctx, job, TriggerManual)

	status := StatusCompleted
	if record.Status == ExecutionFailed {
		status = StatusFailed
	}
	s.scheduler.finishJob(ctx, job, status)

	return record, nil
}

// Status reports whether the scheduler loop is running and how many jobs
// it manages.
func (s *Service) Status(ctx context.Context) (*SchedulerStatus, error) {
	all, err := s.registry.List(ctx, false)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, job := range all {
		if job.IsActive {
			active++
		}
	}

	return &SchedulerStatus{
		Running:    s.scheduler.IsRunning(),
		ActiveJobs: active,
		TotalJobs:  len(all),
	}, nil
}

// JobHistory returns up to limit execution records for a job, newest
// first, optionally filtered by status.
func (s *Service) JobHistory(ctx context.Context, jobID string, limit int, status ExecutionStatus) ([]*Execution, error) {
	return s.history.JobHistory(ctx, jobID, limit, status)
}

// LatestExecution returns the most recent execution record for a job.
func (s *Service) LatestExecution(ctx context.Context, jobID string) (*Execution, error) {
	return s.history.Latest(ctx, jobID)
}

// GetExecution returns a specific execution record by id.
func (s *Service) GetExecution(ctx context.Context, executionID string) (*Execution, error) {
	return s.history.Get(ctx, executionID)
}
