package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/scrivo/internal/models"
)

var (
	// ErrJobNotFound is returned when no job exists for the given ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoPendingJobs is returned by ClaimNextPending when the queue is empty.
	ErrNoPendingJobs = errors.New("no pending jobs")
)

// JobStore persists jobs and owns every state transition. Updates are applied
// directly to the stored record; callers never merge fields from a previously
// read snapshot.
type JobStore interface {
	// Create stores a new pending job for the given input.
	Create(ctx context.Context, input models.JobInput) (*models.Job, error)

	// Get returns the job with the given ID, or ErrJobNotFound.
	Get(ctx context.Context, id string) (*models.Job, error)

	// Update applies the non-nil fields of the update to the stored job
	// inside a single transaction and bumps UpdatedAt.
	Update(ctx context.Context, id string, update models.JobUpdate) error

	// ClaimNextPending atomically transitions the oldest pending job to
	// crawling, incrementing its attempt counter. At most one concurrent
	// caller wins any given job. Returns ErrNoPendingJobs when idle.
	ClaimNextPending(ctx context.Context) (*models.Job, error)

	// ResetStuckJobs recovers in-flight jobs whose last update is older than
	// staleThreshold: back to pending if attempts remain, failed otherwise.
	// Returns the number of jobs touched.
	ResetStuckJobs(ctx context.Context, staleThreshold time.Duration) (int, error)

	// CleanupOldJobs deletes terminal jobs last updated before maxAge ago.
	// Returns the number of jobs deleted.
	CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int, error)

	// List returns jobs matching the options, newest first.
	List(ctx context.Context, opts models.JobListOptions) ([]*models.Job, error)

	// CountByStatus returns job counts grouped by status.
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}
