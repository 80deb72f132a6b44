package models

// RunOutcome classifies what a single worker invocation did.
type RunOutcome string

const (
	RunOutcomeIdle      RunOutcome = "idle"
	RunOutcomeCompleted RunOutcome = "completed"
	RunOutcomeRetried   RunOutcome = "retried"
	RunOutcomeFailed    RunOutcome = "failed"
)

// RunResult reports the job a worker invocation touched, if any.
type RunResult struct {
	JobID   string     `json:"job_id,omitempty"`
	Outcome RunOutcome `json:"outcome"`
}

// JobListOptions filters and pages job listings. Newest jobs come first.
type JobListOptions struct {
	Status *JobStatus
	Limit  int
	Offset int
}
