// -----------------------------------------------------------------------
// Worker: processes at most one job per invocation. Each invocation sweeps
// stuck and expired jobs first, then claims the oldest pending job and
// drives it through crawl -> generate -> parse. Stage failures are turned
// into a retry or a permanent failure on the job itself.
// -----------------------------------------------------------------------

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
)

// Worker implements interfaces.Worker.
type Worker struct {
	store     interfaces.JobStore
	crawler   interfaces.Crawler
	generator interfaces.ContentGenerator
	parser    interfaces.OutputParser
	config    common.WorkerConfig
	logger    arbor.ILogger
}

// New creates a worker over the given store and processing services.
func New(
	store interfaces.JobStore,
	crawler interfaces.Crawler,
	generator interfaces.ContentGenerator,
	parser interfaces.OutputParser,
	config common.WorkerConfig,
	logger arbor.ILogger,
) interfaces.Worker {
	return &Worker{
		store:     store,
		crawler:   crawler,
		generator: generator,
		parser:    parser,
		config:    config,
		logger:    logger,
	}
}

// RunOnce performs the maintenance sweeps and processes at most one job.
// A returned error means the store itself failed; job-level failures are
// recorded on the job and reported through the outcome.
func (w *Worker) RunOnce(ctx context.Context) (*models.RunResult, error) {
	w.sweep(ctx)

	job, err := w.store.ClaimNextPending(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNoPendingJobs) {
			return &models.RunResult{Outcome: models.RunOutcomeIdle}, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	result, processErr := w.process(ctx, job)
	if processErr != nil {
		return w.recordFailure(ctx, job, processErr)
	}

	if err := w.store.Update(ctx, job.ID, models.JobUpdate{
		Status:   models.StatusPtr(models.JobStatusCompleted),
		Progress: models.IntPtr(100),
		Message:  models.StringPtr("article generated"),
		Result:   result,
	}); err != nil {
		return nil, fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}

	w.logger.Info().Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("Job completed")
	return &models.RunResult{JobID: job.ID, Outcome: models.RunOutcomeCompleted}, nil
}

// sweep recovers stalled jobs and purges expired terminal ones. Sweep
// failures are logged but never block processing; the next invocation
// retries them.
func (w *Worker) sweep(ctx context.Context) {
	if reset, err := w.store.ResetStuckJobs(ctx, w.config.StuckThresholdDuration()); err != nil {
		w.logger.Warn().Err(err).Msg("Stuck job sweep failed")
	} else if reset > 0 {
		w.logger.Info().Int("count", reset).Msg("Stuck jobs recovered")
	}

	if deleted, err := w.store.CleanupOldJobs(ctx, w.config.RetentionDuration()); err != nil {
		w.logger.Warn().Err(err).Msg("Old job cleanup failed")
	} else if deleted > 0 {
		w.logger.Info().Int("count", deleted).Msg("Old jobs cleaned up")
	}
}

// process drives one claimed job through the pipeline. The claim already
// moved the job to crawling, so the first transition here is to generating.
func (w *Worker) process(ctx context.Context, job *models.Job) (*models.JobResult, error) {
	crawl, err := w.crawler.Crawl(ctx, job.Input.URL)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	if err := w.store.Update(ctx, job.ID, models.JobUpdate{
		Status:   models.StatusPtr(models.JobStatusGenerating),
		Progress: models.IntPtr(40),
		Message:  models.StringPtr(fmt.Sprintf("generating article from %d context words", crawl.WordCount)),
	}); err != nil {
		return nil, fmt.Errorf("advance to generating: %w", err)
	}

	raw, err := w.generator.Generate(ctx, job.Input, crawl.Context)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if err := w.store.Update(ctx, job.ID, models.JobUpdate{
		Status:   models.StatusPtr(models.JobStatusParsing),
		Progress: models.IntPtr(90),
		Message:  models.StringPtr("parsing model output"),
	}); err != nil {
		return nil, fmt.Errorf("advance to parsing: %w", err)
	}

	result, err := w.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Pages = crawl.Pages

	return result, nil
}

// recordFailure converts a stage failure into a retry or a permanent
// failure on the job. The invocation itself succeeds unless the store
// write fails.
func (w *Worker) recordFailure(ctx context.Context, job *models.Job, cause error) (*models.RunResult, error) {
	if job.Attempts < w.config.MaxRetries {
		message := fmt.Sprintf("attempt %d failed: %v; queued for retry", job.Attempts, cause)
		if err := w.store.Update(ctx, job.ID, models.JobUpdate{
			Status:   models.StatusPtr(models.JobStatusPending),
			Progress: models.IntPtr(0),
			Message:  models.StringPtr(message),
		}); err != nil {
			return nil, fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
		}
		w.logger.Warn().Str("job_id", job.ID).Int("attempt", job.Attempts).Err(cause).Msg("Job requeued for retry")
		return &models.RunResult{JobID: job.ID, Outcome: models.RunOutcomeRetried}, nil
	}

	errMsg := fmt.Sprintf("failed after %d attempts: %v", job.Attempts, cause)
	if err := w.store.Update(ctx, job.ID, models.JobUpdate{
		Status: models.StatusPtr(models.JobStatusFailed),
		Error:  models.StringPtr(errMsg),
	}); err != nil {
		return nil, fmt.Errorf("failed to fail job %s: %w", job.ID, err)
	}
	w.logger.Error().Str("job_id", job.ID).Int("attempts", job.Attempts).Err(cause).Msg("Job failed permanently")
	return &models.RunResult{JobID: job.ID, Outcome: models.RunOutcomeFailed}, nil
}
