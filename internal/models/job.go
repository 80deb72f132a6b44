// -----------------------------------------------------------------------
// Job model for article generation requests. A job carries its input,
// its lifecycle state, and (once finished) either a result or an error.
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of an article job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusCrawling   JobStatus = "crawling"
	JobStatusGenerating JobStatus = "generating"
	JobStatusParsing    JobStatus = "parsing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsValid returns true if the status is a known lifecycle state.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusCrawling, JobStatusGenerating,
		JobStatusParsing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if no further processing will occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsInFlight returns true if a worker has claimed the job and is (or was)
// actively processing it.
func (s JobStatus) IsInFlight() bool {
	return s == JobStatusCrawling || s == JobStatusGenerating || s == JobStatusParsing
}

// InFlightStatuses lists the states a worker holds a job in while processing.
func InFlightStatuses() []JobStatus {
	return []JobStatus{JobStatusCrawling, JobStatusGenerating, JobStatusParsing}
}

// JobInput is the immutable request the job was created with.
type JobInput struct {
	URL          string   `json:"url"`
	Topic        string   `json:"topic"`
	Keywords     []string `json:"keywords"`
	TargetLength int      `json:"target_length"`
	Notes        string   `json:"notes,omitempty"`
}

// PageRef identifies a page that contributed crawl context.
type PageRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// JobResult is the parsed article produced by a completed job.
type JobResult struct {
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	ContentMarkdown string    `json:"content_markdown"`
	FAQRaw          string    `json:"faq_raw"`
	SchemaJSON      string    `json:"schema_json"`
	Pages           []PageRef `json:"pages,omitempty"`
}

// Job is the persisted unit of work. Timestamps are epoch milliseconds.
type Job struct {
	ID            string     `badgerhold:"key" json:"id"`
	Status        JobStatus  `badgerhold:"index" json:"status"`
	Progress      int        `json:"progress"`
	Message       string     `json:"message,omitempty"`
	CreatedAt     int64      `badgerhold:"index" json:"created_at"`
	UpdatedAt     int64      `json:"updated_at"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *int64     `json:"last_attempt_at,omitempty"`
	Input         JobInput   `json:"input"`
	Result        *JobResult `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// NewJob builds a pending job for the given input with fresh timestamps.
// The caller assigns the ID.
func NewJob(id string, input JobInput) *Job {
	now := NowMillis()
	return &Job{
		ID:        id,
		Status:    JobStatusPending,
		Progress:  0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
		Input:     input,
	}
}

// Validate checks the structural invariants a stored job must hold.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("invalid job status: %s", j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("progress out of range: %d", j.Progress)
	}
	if j.Status == JobStatusPending && j.Progress != 0 {
		return fmt.Errorf("pending job must have zero progress, got %d", j.Progress)
	}
	if (j.Result != nil) != (j.Status == JobStatusCompleted) {
		return fmt.Errorf("result must be present exactly when status is completed")
	}
	if (j.Error != "") != (j.Status == JobStatusFailed) {
		return fmt.Errorf("error must be set exactly when status is failed")
	}
	if j.Attempts < 0 {
		return fmt.Errorf("attempts cannot be negative: %d", j.Attempts)
	}
	return nil
}

// JobUpdate describes a partial update. Nil fields are left untouched, so
// "not mentioned" and "set to zero value" stay distinct.
type JobUpdate struct {
	Status        *JobStatus
	Progress      *int
	Message       *string
	Attempts      *int
	LastAttemptAt *int64
	Result        *JobResult
	Error         *string
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// StatusPtr, IntPtr, StringPtr and Int64Ptr build JobUpdate fields inline.
func StatusPtr(s JobStatus) *JobStatus { return &s }
func IntPtr(v int) *int                { return &v }
func StringPtr(v string) *string       { return &v }
func Int64Ptr(v int64) *int64          { return &v }
