// -----------------------------------------------------------------------
// Scheduler: triggers worker invocations on a cron cadence. One invocation
// runs at a time; a tick that fires while a run is still in flight is
// skipped rather than queued.
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
)

// Service drives the worker from a cron schedule.
type Service struct {
	worker  interfaces.Worker
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	busy    bool
	running bool
	entryID cron.EntryID
	runs    sync.WaitGroup
}

// NewService creates a scheduler over the given worker.
func NewService(worker interfaces.Worker, logger arbor.ILogger) *Service {
	return &Service{
		worker: worker,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the worker tick and starts the cron loop. The schedule
// accepts standard cron expressions and @every descriptors.
func (s *Service) Start(schedule string) error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if schedule == "" {
		schedule = "@every 30s"
	}

	entryID, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return fmt.Errorf("failed to register worker schedule %q: %w", schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", schedule).Msg("Worker scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight ticks, including ones
// started by TriggerNow, so storage is not closed under a running worker.
func (s *Service) Stop() {
	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info().Msg("Worker scheduler stopped")
	}
	s.runs.Wait()
}

// TriggerNow runs a worker invocation immediately, subject to the same
// single-flight rule as scheduled ticks. Used after job creation so a new
// job does not wait for the next tick.
func (s *Service) TriggerNow() {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.tick()
	}()
}

// tick runs one worker invocation unless one is already in flight.
func (s *Service) tick() {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.logger.Debug().Msg("Worker tick skipped; previous run still in flight")
		return
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	result, err := s.worker.RunOnce(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Worker run failed")
		return
	}
	if result.Outcome != models.RunOutcomeIdle {
		s.logger.Info().
			Str("job_id", result.JobID).
			Str("outcome", string(result.Outcome)).
			Msg("Worker run finished")
	}
}
