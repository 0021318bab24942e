package schedule

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/kv"
)

// Key layout for job persistence.
const (
	jobKeyPrefix = "job:"
	jobIndexKey  = "job_index"
)

// Registry manages storage and retrieval of scheduled jobs. Individual
// job records are single-key operations; the id index is a shared
// read-modify-write list guarded by one mutex.
type Registry struct {
	adapter kv.Adapter
	mu      sync.Mutex
	logger  *zap.SugaredLogger
}

// NewRegistry creates a job registry over the given adapter.
func NewRegistry(adapter kv.Adapter, logger *zap.SugaredLogger) *Registry {
	return &Registry{adapter: adapter, logger: logger}
}

// Create validates the job, persists it, and appends its id to the
// index. Returns the job id.
func (r *Registry) Create(ctx context.Context, job *Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal job")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.adapter.Save(ctx, jobKeyPrefix+job.ID, data); err != nil {
		return "", errors.Wrapf(err, "failed to save job %s", job.ID)
	}
	if err := r.addToIndex(ctx, job.ID); err != nil {
		return "", err
	}

	r.logger.Infow("Created job", "job_id", job.ID, "job_name", job.Name)
	return job.ID, nil
}

// Get retrieves a job by id, or errors.ErrNotFound.
func (r *Registry) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := r.adapter.Get(ctx, jobKeyPrefix+jobID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewNotFoundError("job %s", jobID)
		}
		return nil, errors.Wrapf(err, "failed to load job %s", jobID)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrapf(err, "corrupt job record %s", jobID)
	}

	return &job, nil
}

// List resolves the index and fetches each referenced job, filtering by
// IsActive when requested. O(n) in index size by design.
func (r *Registry) List(ctx context.Context, activeOnly bool) ([]*Job, error) {
	ids, err := r.readIndex(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.Get(ctx, id)
		if err != nil {
			// An indexed id with no record is tolerated: the record may
			// have been deleted out of band. Skip it.
			if errors.IsNotFoundError(err) {
				r.logger.Warnw("Indexed job record missing", "job_id", id)
				continue
			}
			return nil, err
		}
		if !activeOnly || job.IsActive {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

// GetActiveJobs returns all jobs with IsActive set.
func (r *Registry) GetActiveJobs(ctx context.Context) ([]*Job, error) {
	return r.List(ctx, true)
}

// Update overwrites an existing job record wholesale. Callers merge
// mutable fields into a fresh snapshot before calling. Fails with
// errors.ErrNotFound when no record exists for the job's id.
func (r *Registry) Update(ctx context.Context, job *Job) error {
	exists, err := r.adapter.Exists(ctx, jobKeyPrefix+job.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to check job %s", job.ID)
	}
	if !exists {
		return errors.NewNotFoundError("job %s", job.ID)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "failed to marshal job")
	}

	if err := r.adapter.Save(ctx, jobKeyPrefix+job.ID, data); err != nil {
		return errors.Wrapf(err, "failed to save job %s", job.ID)
	}

	return nil
}

// Delete removes the job record and its index entry. Fails with
// errors.ErrNotFound when the job is absent.
func (r *Registry) Delete(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.adapter.Delete(ctx, jobKeyPrefix+jobID)
	if err != nil {
		return errors.Wrapf(err, "failed to delete job %s", jobID)
	}
	if !deleted {
		return errors.NewNotFoundError("job %s", jobID)
	}

	if err := r.removeFromIndex(ctx, jobID); err != nil {
		return err
	}

	r.logger.Infow("Deleted job", "job_id", jobID)
	return nil
}

// addToIndex appends a job id to the index. Caller holds r.mu.
func (r *Registry) addToIndex(ctx context.Context, jobID string) error {
	ids, err := r.readIndex(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id == jobID {
			return nil
		}
	}

	return r.writeIndex(ctx, append(ids, jobID))
}

// removeFromIndex drops a job id from the index. Caller holds r.mu.
func (r *Registry) removeFromIndex(ctx context.Context, jobID string) error {
	ids, err := r.readIndex(ctx)
	if err != nil {
		return err
	}

	kept := ids[:0]
	for _, id := range ids {
		if id != jobID {
			kept = append(kept, id)
		}
	}

	return r.writeIndex(ctx, kept)
}

func (r *Registry) readIndex(ctx context.Context) ([]string, error) {
	data, err := r.adapter.Get(ctx, jobIndexKey)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load job index")
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, errors.Wrap(err, "corrupt job index")
	}

	return ids, nil
}

func (r *Registry) writeIndex(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "failed to marshal job index")
	}
	if err := r.adapter.Save(ctx, jobIndexKey, data); err != nil {
		return errors.Wrap(err, "failed to save job index")
	}
	return nil
}
