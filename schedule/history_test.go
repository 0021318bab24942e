package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/kv"
)

func newTestHistory(maxPerJob int) *HistoryRegistry {
	return NewHistoryRegistry(kv.NewMemory(), time.Hour, maxPerJob, testLogger())
}

func makeRecord(jobID string, status ExecutionStatus, start time.Time) *Execution {
	job := testJob("History Job", "AAPL")
	job.ID = jobID
	record := NewExecution(job, start, TriggerScheduled)
	record.FetchedItems = []string{"AAPL"}
	record.Finish(start.Add(2 * time.Second))
	record.Status = status
	return record
}

func TestHistorySaveGet(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(10)

	record := makeRecord("job-1", ExecutionSuccess, time.Now())
	require.NoError(t, history.Save(ctx, record))

	got, err := history.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, ExecutionSuccess, got.Status)
	assert.Equal(t, float64(2), got.DurationSeconds)
}

func TestHistoryGetMissing(t *testing.T) {
	history := newTestHistory(10)

	_, err := history.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(10)

	base := time.Now()
	var lastID string
	for i := 0; i < 3; i++ {
		record := makeRecord("job-1", ExecutionSuccess, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, history.Save(ctx, record))
		lastID = record.ID
	}

	records, err := history.JobHistory(ctx, "job-1", 0, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, lastID, records[0].ID)

	latest, err := history.Latest(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, lastID, latest.ID)
}

func TestHistoryIndexBounded(t *testing.T) {
	ctx := context.Background()
	const maxPerJob = 5
	history := newTestHistory(maxPerJob)

	base := time.Now()
	ids := make([]string, 0, maxPerJob+1)
	for i := 0; i < maxPerJob+1; i++ {
		record := makeRecord("job-1", ExecutionSuccess, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, history.Save(ctx, record))
		ids = append(ids, record.ID)
	}

	count, err := history.Count(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, maxPerJob, count)

	records, err := history.JobHistory(ctx, "job-1", 0, "")
	require.NoError(t, err)
	require.Len(t, records, maxPerJob)

	// Oldest id evicted from the index
	for _, record := range records {
		assert.NotEqual(t, ids[0], record.ID)
	}

	// The evicted record itself is not proactively deleted; it lapses
	// via its own TTL
	_, err = history.Get(ctx, ids[0])
	assert.NoError(t, err)
}

func TestHistoryStatusFilter(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(20)

	base := time.Now()
	statuses := []ExecutionStatus{
		ExecutionSuccess, ExecutionFailed, ExecutionPartialSuccess,
		ExecutionFailed, ExecutionSuccess,
	}
	for i, status := range statuses {
		record := makeRecord("job-1", status, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, history.Save(ctx, record))
	}

	failed, err := history.JobHistory(ctx, "job-1", 0, ExecutionFailed)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	for _, record := range failed {
		assert.Equal(t, ExecutionFailed, record.Status)
	}
}

func TestHistoryLimitAppliesAfterFilter(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(20)

	base := time.Now()
	for i := 0; i < 6; i++ {
		status := ExecutionSuccess
		if i%2 == 0 {
			status = ExecutionFailed
		}
		record := makeRecord("job-1", status, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, history.Save(ctx, record))
	}

	failed, err := history.JobHistory(ctx, "job-1", 2, ExecutionFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

func TestHistoryLatestEmpty(t *testing.T) {
	history := newTestHistory(10)

	_, err := history.Latest(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestHistoryDeleteJobHistory(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(10)

	base := time.Now()
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		record := makeRecord("job-1", ExecutionSuccess, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, history.Save(ctx, record))
		ids = append(ids, record.ID)
	}

	require.NoError(t, history.DeleteJobHistory(ctx, "job-1"))

	count, err := history.Count(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for _, id := range ids {
		_, err := history.Get(ctx, id)
		assert.True(t, errors.IsNotFoundError(err), fmt.Sprintf("record %s should be gone", id))
	}
}

func TestHistoryRecordsExpire(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	current := time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)
	mem.SetClock(func() time.Time { return current })

	history := NewHistoryRegistry(mem, time.Hour, 10, testLogger())

	record := makeRecord("job-1", ExecutionSuccess, current)
	require.NoError(t, history.Save(ctx, record))

	current = current.Add(2 * time.Hour)

	_, err := history.Get(ctx, record.ID)
	assert.True(t, errors.IsNotFoundError(err))

	// Index lapsed too - history is empty rather than erroring
	records, err := history.JobHistory(ctx, "job-1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistorySeparatesJobs(t *testing.T) {
	ctx := context.Background()
	history := newTestHistory(10)

	require.NoError(t, history.Save(ctx, makeRecord("job-a", ExecutionSuccess, time.Now())))
	require.NoError(t, history.Save(ctx, makeRecord("job-b", ExecutionFailed, time.Now())))

	a, err := history.JobHistory(ctx, "job-a", 0, "")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "job-a", a[0].JobID)

	countB, err := history.Count(ctx, "job-b")
	require.NoError(t, err)
	assert.Equal(t, 1, countB)
}
