package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quotron/quotron/marketdata"
)

// Executor runs one job's per-item workload with fault isolation: a
// failing item is recorded and the loop moves on, it never aborts the
// remaining items.
type Executor struct {
	fetcher      marketdata.Fetcher
	results      marketdata.ResultStore
	history      *HistoryRegistry
	lookbackDays int
	logger       *zap.SugaredLogger

	// now is swappable so tests can pin the execution date
	now func() time.Time
}

// NewExecutor creates an executor. lookbackDays bounds the default fetch
// range for jobs with neither a fixed start date nor a sliding window;
// non-positive falls back to DefaultLookbackDays.
func NewExecutor(fetcher marketdata.Fetcher, results marketdata.ResultStore, history *HistoryRegistry, lookbackDays int, logger *zap.SugaredLogger) *Executor {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Executor{
		fetcher:      fetcher,
		results:      results,
		history:      history,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

// Execute runs the job once and returns its execution record. The fetch
// window is resolved fresh against "now" so sliding windows slide. The
// record is persisted to history best-effort: a history save failure is
// logged and never changes the reported outcome.
func (e *Executor) Execute(ctx context.Context, job *Job, triggeredBy Trigger) *Execution {
	startTime := e.now()
	record := NewExecution(job, startTime, triggeredBy)

	startDate, endDate := job.EffectiveRange(startTime, e.lookbackDays)

	e.logger.Infow("Starting job execution",
		"job_id", job.ID,
		"job_name", job.Name,
		"execution_id", record.ID,
		"start_date", startDate,
		"end_date", endDate,
		"total_count", len(job.ItemIDs))

	for _, itemID := range job.ItemIDs {
		if err := e.fetchAndStore(ctx, job, itemID, startDate, endDate); err != nil {
			record.FailedItems = append(record.FailedItems, itemID)
			record.Errors = append(record.Errors, err.Error())
			e.logger.Errorw("Item failed",
				"job_id", job.ID,
				"item_id", itemID,
				"error", err)
			continue
		}
		record.FetchedItems = append(record.FetchedItems, itemID)
	}

	record.Finish(e.now())

	if err := e.history.Save(ctx, record); err != nil {
		// History is an audit trail; losing one record must not make a
		// job run report as failed.
		e.logger.Errorw("Failed to save execution history",
			"execution_id", record.ID,
			"job_id", job.ID,
			"error", err)
	}

	e.logger.Infow("Completed job execution",
		"job_id", job.ID,
		"job_name", job.Name,
		"execution_id", record.ID,
		"status", record.Status,
		"fetched", len(record.FetchedItems),
		"failed", len(record.FailedItems),
		"duration_seconds", record.DurationSeconds)

	return record
}

// fetchAndStore attempts the fetch-then-store workload for one item. The
// returned error is the human-readable description recorded on the
// execution record.
func (e *Executor) fetchAndStore(ctx context.Context, job *Job, itemID, startDate, endDate string) error {
	rows, err := e.fetcher.Fetch(ctx, itemID, startDate, endDate)
	if err != nil {
		return fmt.Errorf("Failed to fetch %s: %s", itemID, err.Error())
	}

	if err := e.results.Store(ctx, rows, job.Namespace, itemID, startDate, endDate); err != nil {
		return fmt.Errorf("Failed to store %s: %s", itemID, err.Error())
	}

	return nil
}
