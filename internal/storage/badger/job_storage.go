// -----------------------------------------------------------------------
// Job storage on badgerhold. All writes go through UpdateMatching so the
// read-apply-write happens inside a single Badger transaction; callers never
// merge fields from a previously read snapshot.
// -----------------------------------------------------------------------

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements interfaces.JobStore on a BadgerDB connection.
type JobStorage struct {
	db         *BadgerDB
	logger     arbor.ILogger
	maxRetries int
}

// NewJobStorage creates a job storage. maxRetries bounds how many attempts a
// stalled job gets before stuck-job recovery fails it permanently.
func NewJobStorage(db *BadgerDB, logger arbor.ILogger, maxRetries int) interfaces.JobStore {
	return &JobStorage{
		db:         db,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Create stores a new pending job for the given input.
func (s *JobStorage) Create(ctx context.Context, input models.JobInput) (*models.Job, error) {
	job := models.NewJob(common.NewJobID(), input)

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	s.logger.Info().Str("job_id", job.ID).Str("url", input.URL).Msg("Job created")
	return job, nil
}

// Get returns the job with the given ID.
func (s *JobStorage) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// Update applies the non-nil fields of the update to the stored record
// inside one transaction. UpdatedAt is always bumped.
func (s *JobStorage) Update(ctx context.Context, id string, update models.JobUpdate) error {
	found := false
	var applyErr error

	err := s.db.Store().UpdateMatching(&models.Job{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		job, ok := record.(*models.Job)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		found = true
		if applyErr = applyUpdate(job, update); applyErr != nil {
			return applyErr
		}
		job.UpdatedAt = models.NowMillis()
		return nil
	})
	if err != nil {
		if applyErr != nil {
			return applyErr
		}
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	if !found {
		return interfaces.ErrJobNotFound
	}
	return nil
}

// applyUpdate mutates the stored job with the update's non-nil fields and
// enforces the result/error exclusivity and attempt monotonicity invariants.
func applyUpdate(job *models.Job, update models.JobUpdate) error {
	if update.Status != nil {
		if !update.Status.IsValid() {
			return fmt.Errorf("invalid status %q", *update.Status)
		}
		job.Status = *update.Status
	}
	if update.Progress != nil {
		if *update.Progress < 0 || *update.Progress > 100 {
			return fmt.Errorf("progress out of range: %d", *update.Progress)
		}
		job.Progress = *update.Progress
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.Attempts != nil {
		if *update.Attempts < job.Attempts {
			return fmt.Errorf("attempts cannot decrease (%d -> %d)", job.Attempts, *update.Attempts)
		}
		job.Attempts = *update.Attempts
	}
	if update.LastAttemptAt != nil {
		job.LastAttemptAt = update.LastAttemptAt
	}
	if update.Result != nil {
		job.Result = update.Result
	}
	if update.Error != nil {
		job.Error = *update.Error
	}

	switch job.Status {
	case models.JobStatusCompleted:
		if job.Result == nil {
			return fmt.Errorf("completed job requires a result")
		}
		job.Error = ""
		job.Progress = 100
	case models.JobStatusFailed:
		if job.Error == "" {
			return fmt.Errorf("failed job requires an error")
		}
		job.Result = nil
	default:
		job.Result = nil
		job.Error = ""
		if job.Status == models.JobStatusPending {
			job.Progress = 0
		}
	}
	return nil
}

// ClaimNextPending atomically claims the oldest pending job. The candidate is
// re-checked inside the update transaction, so a concurrent caller that claims
// it first causes this caller to move on to the next oldest.
func (s *JobStorage) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var candidates []models.Job
		query := badgerhold.Where("Status").Eq(models.JobStatusPending).Index("Status").
			SortBy("CreatedAt").Limit(1)
		if err := s.db.Store().Find(&candidates, query); err != nil {
			return nil, fmt.Errorf("failed to find pending jobs: %w", err)
		}
		if len(candidates) == 0 {
			return nil, interfaces.ErrNoPendingJobs
		}

		var claimed *models.Job
		err := s.db.Store().UpdateMatching(&models.Job{}, badgerhold.Where(badgerhold.Key).Eq(candidates[0].ID), func(record interface{}) error {
			job, ok := record.(*models.Job)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			if job.Status != models.JobStatusPending {
				// Lost the race; leave the record alone.
				return nil
			}
			now := models.NowMillis()
			job.Status = models.JobStatusCrawling
			job.Progress = 10
			job.Attempts++
			job.LastAttemptAt = &now
			job.UpdatedAt = now
			job.Message = fmt.Sprintf("attempt %d: crawling %s", job.Attempts, job.Input.URL)
			snapshot := *job
			claimed = &snapshot
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", candidates[0].ID, err)
		}
		if claimed != nil {
			s.logger.Info().Str("job_id", claimed.ID).Int("attempt", claimed.Attempts).Msg("Job claimed")
			return claimed, nil
		}
	}
}

// ResetStuckJobs recovers in-flight jobs whose last update is older than the
// threshold. Jobs with attempts remaining go back to pending; exhausted jobs
// are failed.
func (s *JobStorage) ResetStuckJobs(ctx context.Context, staleThreshold time.Duration) (int, error) {
	cutoff := models.NowMillis() - staleThreshold.Milliseconds()
	count := 0

	query := badgerhold.Where("Status").
		In(models.JobStatusCrawling, models.JobStatusGenerating, models.JobStatusParsing).
		And("UpdatedAt").Lt(cutoff)

	err := s.db.Store().UpdateMatching(&models.Job{}, query, func(record interface{}) error {
		job, ok := record.(*models.Job)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		stalledIn := job.Status
		now := models.NowMillis()
		if job.Attempts >= s.maxRetries {
			job.Status = models.JobStatusFailed
			job.Error = fmt.Sprintf("job stalled in %s state after %d attempts", stalledIn, job.Attempts)
			job.Result = nil
			s.logger.Warn().Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("Stalled job failed permanently")
		} else {
			job.Status = models.JobStatusPending
			job.Progress = 0
			job.Message = fmt.Sprintf("attempt %d stalled in %s state; queued for retry", job.Attempts, stalledIn)
			job.Result = nil
			job.Error = ""
			s.logger.Warn().Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("Stalled job reset to pending")
		}
		job.UpdatedAt = now
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck jobs: %w", err)
	}
	return count, nil
}

// CleanupOldJobs deletes terminal jobs last updated before maxAge ago.
func (s *JobStorage) CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := models.NowMillis() - maxAge.Milliseconds()

	query := badgerhold.Where("Status").
		In(models.JobStatusCompleted, models.JobStatusFailed).
		And("UpdatedAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.Job{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count old jobs: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.Job{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}

	s.logger.Info().Int("count", int(count)).Msg("Old terminal jobs deleted")
	return int(count), nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *JobStorage) List(ctx context.Context, opts models.JobListOptions) ([]*models.Job, error) {
	var query *badgerhold.Query
	if opts.Status != nil {
		query = badgerhold.Where("Status").Eq(*opts.Status).Index("Status")
	} else {
		query = badgerhold.Where("CreatedAt").Gt(int64(0))
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// CountByStatus returns job counts for every lifecycle state.
func (s *JobStorage) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	counts := make(map[models.JobStatus]int)
	statuses := []models.JobStatus{
		models.JobStatusPending, models.JobStatusCrawling, models.JobStatusGenerating,
		models.JobStatusParsing, models.JobStatusCompleted, models.JobStatusFailed,
	}
	for _, status := range statuses {
		count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status).Index("Status"))
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", status, err)
		}
		counts[status] = int(count)
	}
	return counts, nil
}
