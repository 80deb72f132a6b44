package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
	"github.com/ternarybob/scrivo/internal/storage/badger"
)

// ---------------------------------------------------------------------
// Stub services
// ---------------------------------------------------------------------

type stubCrawler struct {
	result *models.CrawlResult
	err    error
}

func (s *stubCrawler) Crawl(ctx context.Context, seedURL string) (*models.CrawlResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubGenerator struct {
	output string
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, input models.JobInput, siteContext string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func (s *stubGenerator) Provider() string { return "stub" }

type stubParser struct {
	result *models.JobResult
	err    error
}

func (s *stubParser) Parse(raw string) (*models.JobResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.result
	return &copied, nil
}

func testInput() models.JobInput {
	return models.JobInput{
		URL:          "https://example.com",
		Topic:        "emergency plumbing",
		Keywords:     []string{"plumber", "burst pipe"},
		TargetLength: 800,
	}
}

func testWorkerConfig() common.WorkerConfig {
	return common.WorkerConfig{
		Enabled:        true,
		MaxRetries:     3,
		StuckThreshold: "10m",
		Retention:      "24h",
	}
}

func newTestStore(t *testing.T) interfaces.JobStore {
	t.Helper()
	manager, err := badger.NewManager(
		arbor.NewLogger(),
		&common.BadgerConfig{Path: t.TempDir()},
		&common.WorkerConfig{MaxRetries: 3},
	)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager.JobStore()
}

func successServices() (*stubCrawler, *stubGenerator, *stubParser) {
	crawler := &stubCrawler{result: &models.CrawlResult{
		Context:   "site context",
		Pages:     []models.PageRef{{URL: "https://example.com", Title: "Example"}},
		WordCount: 120,
	}}
	generator := &stubGenerator{output: "raw model output"}
	parser := &stubParser{result: &models.JobResult{
		MetaTitle:       "Emergency Plumbing Guide",
		MetaDescription: "What to do when a pipe bursts.",
		ContentMarkdown: "# Emergency Plumbing",
		FAQRaw:          "Q: Who to call?\nA: A licensed plumber.",
		SchemaJSON:      `{"@type":"Article"}`,
	}}
	return crawler, generator, parser
}

// ---------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------

func TestRunOnceIdle(t *testing.T) {
	store := newTestStore(t)
	crawler, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	result, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if result.Outcome != models.RunOutcomeIdle {
		t.Errorf("outcome = %s, want idle", result.Outcome)
	}
	if result.JobID != "" {
		t.Errorf("idle result carries job ID %q", result.JobID)
	}
}

func TestRunOnceCompletesJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	crawler, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	result, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if result.Outcome != models.RunOutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", result.Outcome)
	}
	if result.JobID != job.ID {
		t.Errorf("job ID = %s, want %s", result.JobID, job.ID)
	}

	stored, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != models.JobStatusCompleted {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.Progress != 100 {
		t.Errorf("progress = %d", stored.Progress)
	}
	if stored.Attempts != 1 {
		t.Errorf("attempts = %d", stored.Attempts)
	}
	if stored.Result == nil {
		t.Fatal("result not stored")
	}
	if stored.Result.MetaTitle != "Emergency Plumbing Guide" {
		t.Errorf("meta title = %q", stored.Result.MetaTitle)
	}
	if len(stored.Result.Pages) != 1 || stored.Result.Pages[0].URL != "https://example.com" {
		t.Errorf("crawled pages not attached to result: %+v", stored.Result.Pages)
	}
	if stored.Error != "" {
		t.Errorf("error set on completed job: %q", stored.Error)
	}
}

func TestRunOnceRetriesThenFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	crawler := &stubCrawler{err: errors.New("site unreachable")}
	_, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	// Attempts 1 and 2 requeue the job.
	for attempt := 1; attempt <= 2; attempt++ {
		result, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce attempt %d failed: %v", attempt, err)
		}
		if result.Outcome != models.RunOutcomeRetried {
			t.Fatalf("attempt %d outcome = %s, want retried", attempt, result.Outcome)
		}

		stored, _ := store.Get(ctx, job.ID)
		if stored.Status != models.JobStatusPending {
			t.Fatalf("attempt %d status = %s, want pending", attempt, stored.Status)
		}
		if stored.Attempts != attempt {
			t.Errorf("attempt %d counter = %d", attempt, stored.Attempts)
		}
		if stored.Progress != 0 {
			t.Errorf("attempt %d progress = %d, want 0", attempt, stored.Progress)
		}
	}

	// Attempt 3 exhausts the retry budget.
	result, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("final RunOnce failed: %v", err)
	}
	if result.Outcome != models.RunOutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome)
	}

	stored, _ := store.Get(ctx, job.ID)
	if stored.Status != models.JobStatusFailed {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.Attempts != 3 {
		t.Errorf("attempts = %d", stored.Attempts)
	}
	if stored.Error == "" {
		t.Error("failed job has no error")
	}
	if stored.Result != nil {
		t.Error("failed job carries a result")
	}
}

func TestRunOnceGeneratorFailureRequeues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	crawler, _, parser := successServices()
	generator := &stubGenerator{err: errors.New("rate limited")}
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	result, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if result.Outcome != models.RunOutcomeRetried {
		t.Fatalf("outcome = %s, want retried", result.Outcome)
	}

	stored, _ := store.Get(ctx, job.ID)
	if stored.Status != models.JobStatusPending {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.Message == "" {
		t.Error("retry message not recorded")
	}
}

func TestRunOnceProcessesOneJobPerInvocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testInput()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, testInput()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	crawler, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[models.JobStatusPending] != 1 {
		t.Errorf("pending = %d, want 1", counts[models.JobStatusPending])
	}
	if counts[models.JobStatusCompleted] != 1 {
		t.Errorf("completed = %d, want 1", counts[models.JobStatusCompleted])
	}
}

// ---------------------------------------------------------------------
// Sweep ordering (recording store)
// ---------------------------------------------------------------------

type recordingStore struct {
	interfaces.JobStore
	calls    []string
	sweepErr error
}

func (r *recordingStore) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	r.calls = append(r.calls, "claim")
	return nil, interfaces.ErrNoPendingJobs
}

func (r *recordingStore) ResetStuckJobs(ctx context.Context, staleThreshold time.Duration) (int, error) {
	r.calls = append(r.calls, "reset")
	return 0, r.sweepErr
}

func (r *recordingStore) CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int, error) {
	r.calls = append(r.calls, "cleanup")
	return 0, r.sweepErr
}

func TestRunOnceSweepsBeforeClaiming(t *testing.T) {
	store := &recordingStore{}
	crawler, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	result, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if result.Outcome != models.RunOutcomeIdle {
		t.Errorf("outcome = %s", result.Outcome)
	}

	want := []string{"reset", "cleanup", "claim"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v", store.calls)
	}
	for i, call := range want {
		if store.calls[i] != call {
			t.Fatalf("calls = %v, want %v", store.calls, want)
		}
	}
}

func TestRunOnceToleratesSweepFailure(t *testing.T) {
	store := &recordingStore{sweepErr: errors.New("compaction in progress")}
	crawler, generator, parser := successServices()
	w := New(store, crawler, generator, parser, testWorkerConfig(), arbor.NewLogger())

	result, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failure leaked out of RunOnce: %v", err)
	}
	if result.Outcome != models.RunOutcomeIdle {
		t.Errorf("outcome = %s", result.Outcome)
	}
}
