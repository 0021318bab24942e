package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/internal/util"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{
			name:   "valid job",
			mutate: func(j *Job) {},
		},
		{
			name:    "empty name",
			mutate:  func(j *Job) { j.Name = "" },
			wantErr: "job name is required",
		},
		{
			name:    "no items",
			mutate:  func(j *Job) { j.ItemIDs = nil },
			wantErr: "at least one item id is required",
		},
		{
			name:    "bad schedule time format",
			mutate:  func(j *Job) { j.ScheduleTime = "9am" },
			wantErr: "invalid schedule_time",
		},
		{
			name:    "hour out of range",
			mutate:  func(j *Job) { j.ScheduleTime = "24:00" },
			wantErr: "invalid schedule_time",
		},
		{
			name:    "minute out of range",
			mutate:  func(j *Job) { j.ScheduleTime = "17:60" },
			wantErr: "invalid schedule_time",
		},
		{
			name:   "boundary times accepted",
			mutate: func(j *Job) { j.ScheduleTime = "00:00" },
		},
		{
			name:   "late boundary accepted",
			mutate: func(j *Job) { j.ScheduleTime = "23:59" },
		},
		{
			name:    "zero duration days",
			mutate:  func(j *Job) { j.DurationDays = util.Ptr(0) },
			wantErr: "duration_days must be positive",
		},
		{
			name:    "negative duration days",
			mutate:  func(j *Job) { j.DurationDays = util.Ptr(-7) },
			wantErr: "duration_days must be positive",
		},
		{
			name:   "positive duration days accepted",
			mutate: func(j *Job) { j.DurationDays = util.Ptr(30) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("Daily Fetch", []string{"AAPL", "TSLA"})
			tt.mutate(job)

			err := job.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEffectiveRangeSlidingWindow(t *testing.T) {
	job := NewJob("Sliding", []string{"AAPL"})
	job.DurationDays = util.Ptr(30)

	reference := time.Date(2025, 10, 23, 9, 0, 0, 0, time.UTC)
	start, end := job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-09-23", start)
	assert.Equal(t, "2025-10-23", end)

	// The window slides with the reference date, never cached
	reference = reference.AddDate(0, 0, 5)
	start, end = job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-09-28", start)
	assert.Equal(t, "2025-10-28", end)
}

func TestEffectiveRangeSlidingWindowBeatsFixedStart(t *testing.T) {
	job := NewJob("Both", []string{"AAPL"})
	job.StartDate = "2020-01-01"
	job.DurationDays = util.Ptr(7)

	reference := time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)
	start, _ := job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-10-16", start)
}

func TestEffectiveRangeFixedDates(t *testing.T) {
	job := NewJob("Fixed", []string{"AAPL"})
	job.StartDate = "2025-01-01"
	job.EndDate = "2025-06-30"

	reference := time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)
	start, end := job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-01-01", start)
	assert.Equal(t, "2025-06-30", end)
}

func TestEffectiveRangeFixedStartOpenEnd(t *testing.T) {
	job := NewJob("OpenEnd", []string{"AAPL"})
	job.StartDate = "2025-01-01"

	reference := time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)
	start, end := job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-01-01", start)
	assert.Equal(t, "2025-10-23", end)
}

func TestEffectiveRangeDefaultLookback(t *testing.T) {
	job := NewJob("Default", []string{"AAPL"})

	reference := time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)
	start, end := job.EffectiveRange(reference, DefaultLookbackDays)
	assert.Equal(t, "2025-09-23", start)
	assert.Equal(t, "2025-10-23", end)
}

func TestJobRoundTrip(t *testing.T) {
	job := NewJob("Daily Test", []string{"AAPL", "TSLA", "AAPL"})
	job.ScheduleTime = "09:30"
	job.StartDate = "2025-01-01"
	job.DurationDays = util.Ptr(14)
	lastRun := time.Date(2025, 10, 22, 9, 30, 0, 0, time.UTC)
	nextRun := time.Date(2025, 10, 23, 9, 30, 0, 0, time.UTC)
	job.LastRun = &lastRun
	job.NextRun = &nextRun
	job.Status = StatusCompleted

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var got Job
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, job.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Name, got.Name)
	assert.Equal(t, job.ItemIDs, got.ItemIDs)
	assert.Equal(t, job.ScheduleTime, got.ScheduleTime)
	assert.Equal(t, job.IsActive, got.IsActive)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, job.LastRun.Equal(*got.LastRun))
	assert.True(t, job.NextRun.Equal(*got.NextRun))
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, job.StartDate, got.StartDate)
	assert.Equal(t, job.EndDate, got.EndDate)
	assert.Equal(t, *job.DurationDays, *got.DurationDays)
	assert.Equal(t, job.Namespace, got.Namespace)
}

func TestNextRunAfter(t *testing.T) {
	loc := time.UTC

	// Before the scheduled time: today
	from := time.Date(2025, 10, 23, 10, 0, 0, 0, loc)
	next, err := NextRunAfter("17:00", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 23, 17, 0, 0, 0, loc), next)

	// After the scheduled time: tomorrow
	from = time.Date(2025, 10, 23, 18, 0, 0, 0, loc)
	next, err = NextRunAfter("17:00", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 24, 17, 0, 0, 0, loc), next)

	// Exactly at the scheduled time: tomorrow
	from = time.Date(2025, 10, 23, 17, 0, 0, 0, loc)
	next, err = NextRunAfter("17:00", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 24, 17, 0, 0, 0, loc), next)

	_, err = NextRunAfter("25:00", from)
	assert.Error(t, err)
}

func TestJobStatusValid(t *testing.T) {
	for _, s := range []JobStatus{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusPaused} {
		assert.True(t, s.Valid())
	}
	assert.False(t, JobStatus("cancelled").Valid())
	assert.False(t, JobStatus("").Valid())
}
