// Package schedule provides the quotron job scheduling core: job
// definitions, durable registries, fault-isolated execution, and the
// background scheduling loop.
package schedule

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/quotron/quotron/errors"
)

// JobStatus is the closed set of states a scheduled job moves through.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPaused    JobStatus = "paused"
)

// Valid returns true if the status is a member of the closed enumeration.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusPaused:
		return true
	default:
		return false
	}
}

// DefaultLookbackDays is the fetch range used when a job sets neither a
// fixed start date nor a sliding window.
const DefaultLookbackDays = 30

// DefaultNamespace is the storage prefix for fetched results when a job
// does not name one.
const DefaultNamespace = "scheduled_stock_data"

// isoDate is the layout for the job date range fields.
const isoDate = "2006-01-02"

var scheduleTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Job is one schedule configuration: what items to fetch, when, and over
// what date range. The date range is resolved fresh on every execution
// (see EffectiveRange) so sliding windows actually slide.
type Job struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"job_id"`
	Name          string `json:"name"`

	// Work items, in order. Duplicates are not deduplicated.
	ItemIDs []string `json:"item_ids"`

	// Time of day to run, HH:MM 24-hour, server-local time.
	ScheduleTime string `json:"schedule_time"`

	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	Status    JobStatus  `json:"status"`

	// Optional fixed fetch range, ISO dates.
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	// When set, overrides StartDate with a window sliding back from the
	// execution date.
	DurationDays *int `json:"duration_days,omitempty"`

	// Storage prefix for fetched results.
	Namespace string `json:"namespace"`
}

// NewJob creates a job with generated id and defaults. Callers fill in
// the fields they care about and Validate before persisting.
func NewJob(name string, itemIDs []string) *Job {
	return &Job{
		SchemaVersion: 1,
		ID:            uuid.NewString(),
		Name:          name,
		ItemIDs:       itemIDs,
		ScheduleTime:  "17:00",
		IsActive:      true,
		CreatedAt:     time.Now(),
		Status:        StatusPending,
		Namespace:     DefaultNamespace,
	}
}

// Validate rejects malformed job definitions before persistence.
func (j *Job) Validate() error {
	if j.Name == "" {
		return errors.NewValidationError("job name is required")
	}
	if len(j.ItemIDs) == 0 {
		return errors.NewValidationError("at least one item id is required")
	}
	if !scheduleTimeRe.MatchString(j.ScheduleTime) {
		return errors.NewValidationError("invalid schedule_time %q, use HH:MM", j.ScheduleTime)
	}
	if j.DurationDays != nil && *j.DurationDays <= 0 {
		return errors.NewValidationError("duration_days must be positive, got %d", *j.DurationDays)
	}
	if !j.Status.Valid() {
		return errors.NewValidationError("invalid status %q", j.Status)
	}
	return nil
}

// EffectiveRange resolves the fetch window against a reference date.
// Resolution order: sliding window (DurationDays), then fixed StartDate,
// then lookbackDays back from the reference. The end defaults to the
// reference date when EndDate is unset. Never memoized.
func (j *Job) EffectiveRange(reference time.Time, lookbackDays int) (start, end string) {
	end = j.EndDate
	if end == "" {
		end = reference.Format(isoDate)
	}

	switch {
	case j.DurationDays != nil:
		start = reference.AddDate(0, 0, -*j.DurationDays).Format(isoDate)
	case j.StartDate != "":
		start = j.StartDate
	default:
		start = reference.AddDate(0, 0, -lookbackDays).Format(isoDate)
	}

	return start, end
}

// NextRunAfter computes the next trigger instant for an HH:MM schedule
// relative to from: today at that time, rolled to tomorrow when the
// instant has already passed.
func NextRunAfter(scheduleTime string, from time.Time) (time.Time, error) {
	if !scheduleTimeRe.MatchString(scheduleTime) {
		return time.Time{}, errors.NewValidationError("invalid schedule_time %q, use HH:MM", scheduleTime)
	}

	at, err := time.ParseInLocation("15:04", scheduleTime, from.Location())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse schedule_time %q", scheduleTime)
	}

	next := time.Date(from.Year(), from.Month(), from.Day(), at.Hour(), at.Minute(), 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}

	return next, nil
}
