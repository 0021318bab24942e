package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus classifies the outcome of one job run.
type ExecutionStatus string

const (
	ExecutionSuccess        ExecutionStatus = "success"
	ExecutionPartialSuccess ExecutionStatus = "partial_success"
	ExecutionFailed         ExecutionStatus = "failed"
)

// Valid returns true if the status is a member of the closed enumeration.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionSuccess, ExecutionPartialSuccess, ExecutionFailed:
		return true
	default:
		return false
	}
}

// Trigger records what caused an execution.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Execution is the immutable outcome of one run of a job. JobName is a
// snapshot at execution time and may diverge from the job's current name.
type Execution struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"execution_id"`
	JobID         string `json:"job_id"`
	JobName       string `json:"job_name"`

	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`

	Status ExecutionStatus `json:"status"`

	// Item outcomes, in attempt order. Errors holds one human-readable
	// description per failed item.
	FetchedItems []string `json:"fetched_items"`
	FailedItems  []string `json:"failed_items"`
	Errors       []string `json:"errors"`
	TotalItems   int      `json:"total_items"`

	TriggeredBy Trigger `json:"triggered_by"`
}

// NewExecution creates an execution record snapshot for one run of job.
func NewExecution(job *Job, startTime time.Time, triggeredBy Trigger) *Execution {
	return &Execution{
		SchemaVersion: 1,
		ID:            uuid.NewString(),
		JobID:         job.ID,
		JobName:       job.Name,
		StartTime:     startTime,
		TotalItems:    len(job.ItemIDs),
		FetchedItems:  []string{},
		FailedItems:   []string{},
		Errors:        []string{},
		TriggeredBy:   triggeredBy,
	}
}

// Finish stamps the end time, duration, and classified status: success
// when nothing failed, failed when nothing succeeded, partial otherwise.
func (e *Execution) Finish(endTime time.Time) {
	e.EndTime = endTime
	e.DurationSeconds = endTime.Sub(e.StartTime).Seconds()

	switch {
	case len(e.FailedItems) == 0:
		e.Status = ExecutionSuccess
	case len(e.FetchedItems) == 0:
		e.Status = ExecutionFailed
	default:
		e.Status = ExecutionPartialSuccess
	}
}
