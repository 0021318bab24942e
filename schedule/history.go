package schedule

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/kv"
)

// Key layout for execution history persistence.
const (
	executionKeyPrefix    = "execution:"
	jobHistoryIndexPrefix = "job_history_index:"
)

// Retention defaults for execution history.
const (
	DefaultHistoryTTL       = 30 * 24 * time.Hour
	DefaultMaxHistoryPerJob = 100
)

// HistoryRegistry persists execution records with a retention TTL and a
// newest-first, capacity-bounded per-job index. Evicting an id from the
// index does not delete the underlying record; it lapses via its TTL.
type HistoryRegistry struct {
	adapter   kv.Adapter
	ttl       time.Duration
	maxPerJob int
	mu        sync.Mutex
	logger    *zap.SugaredLogger
}

// NewHistoryRegistry creates a history registry with the given retention
// TTL and per-job index capacity. Non-positive arguments fall back to
// the defaults.
func NewHistoryRegistry(adapter kv.Adapter, ttl time.Duration, maxPerJob int, logger *zap.SugaredLogger) *HistoryRegistry {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	if maxPerJob <= 0 {
		maxPerJob = DefaultMaxHistoryPerJob
	}
	return &HistoryRegistry{
		adapter:   adapter,
		ttl:       ttl,
		maxPerJob: maxPerJob,
		logger:    logger,
	}
}

// Save persists the record with the retention TTL and pushes its id onto
// the front of the job's history index, evicting the oldest ids beyond
// capacity.
func (h *HistoryRegistry) Save(ctx context.Context, record *Execution) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal execution %s", record.ID)
	}

	if err := h.adapter.SaveWithTTL(ctx, executionKeyPrefix+record.ID, data, h.ttl); err != nil {
		return errors.Wrapf(err, "failed to save execution %s", record.ID)
	}

	if err := h.pushToIndex(ctx, record.JobID, record.ID); err != nil {
		return err
	}

	h.logger.Infow("Saved execution record",
		"execution_id", record.ID,
		"job_id", record.JobID,
		"status", record.Status)
	return nil
}

// Get retrieves a specific execution record, or errors.ErrNotFound.
func (h *HistoryRegistry) Get(ctx context.Context, executionID string) (*Execution, error) {
	data, err := h.adapter.Get(ctx, executionKeyPrefix+executionID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewNotFoundError("execution %s", executionID)
		}
		return nil, errors.Wrapf(err, "failed to load execution %s", executionID)
	}

	var record Execution
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "corrupt execution record %s", executionID)
	}

	return &record, nil
}

// JobHistory returns up to limit records for a job, newest first,
// optionally filtered by status ("" = no filter). Indexed ids whose
// records have lapsed via TTL are skipped.
func (h *HistoryRegistry) JobHistory(ctx context.Context, jobID string, limit int, status ExecutionStatus) ([]*Execution, error) {
	ids, err := h.readIndex(ctx, jobID)
	if err != nil {
		return nil, err
	}

	records := make([]*Execution, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(records) >= limit {
			break
		}

		record, err := h.Get(ctx, id)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if status != "" && record.Status != status {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// Latest returns the most recent execution record for a job, or
// errors.ErrNotFound when the job has no history.
func (h *HistoryRegistry) Latest(ctx context.Context, jobID string) (*Execution, error) {
	records, err := h.JobHistory(ctx, jobID, 1, "")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewNotFoundError("no executions for job %s", jobID)
	}
	return records[0], nil
}

// Delete removes a specific execution record. The record's id stays in
// the job index until it is evicted or the index lapses.
func (h *HistoryRegistry) Delete(ctx context.Context, executionID string) error {
	if _, err := h.adapter.Delete(ctx, executionKeyPrefix+executionID); err != nil {
		return errors.Wrapf(err, "failed to delete execution %s", executionID)
	}
	return nil
}

// DeleteJobHistory removes every indexed execution record for a job
// along with the index itself.
func (h *HistoryRegistry) DeleteJobHistory(ctx context.Context, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids, err := h.readIndex(ctx, jobID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := h.Delete(ctx, id); err != nil {
			return err
		}
	}

	if _, err := h.adapter.Delete(ctx, jobHistoryIndexPrefix+jobID); err != nil {
		return errors.Wrapf(err, "failed to delete history index for job %s", jobID)
	}

	h.logger.Infow("Deleted job history", "job_id", jobID, "count", len(ids))
	return nil
}

// Count returns the job's history index length.
func (h *HistoryRegistry) Count(ctx context.Context, jobID string) (int, error) {
	ids, err := h.readIndex(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// pushToIndex prepends an execution id to the job's newest-first index
// and truncates it to capacity.
func (h *HistoryRegistry) pushToIndex(ctx context.Context, jobID, executionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids, err := h.readIndex(ctx, jobID)
	if err != nil {
		return err
	}

	ids = append([]string{executionID}, ids...)
	if len(ids) > h.maxPerJob {
		ids = ids[:h.maxPerJob]
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal history index for job %s", jobID)
	}
	if err := h.adapter.SaveWithTTL(ctx, jobHistoryIndexPrefix+jobID, data, h.ttl); err != nil {
		return errors.Wrapf(err, "failed to save history index for job %s", jobID)
	}

	return nil
}

func (h *HistoryRegistry) readIndex(ctx context.Context, jobID string) ([]string, error) {
	data, err := h.adapter.Get(ctx, jobHistoryIndexPrefix+jobID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to load history index for job %s", jobID)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, errors.Wrapf(err, "corrupt history index for job %s", jobID)
	}

	return ids, nil
}
