package logger

// Standard field names for consistent structured logging across quotron.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldJobID       = "job_id"
	FieldJobName     = "job_name"
	FieldExecutionID = "execution_id"
	FieldItemID      = "item_id"

	// Components
	FieldComponent = "component"

	// Timing
	FieldDurationSeconds = "duration_seconds"
	FieldStartTime       = "start_time"
	FieldEndTime         = "end_time"
	FieldNextRun         = "next_run"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"

	// Status
	FieldStatus = "status"
)
