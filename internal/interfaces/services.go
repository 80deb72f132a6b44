package interfaces

import (
	"context"

	"github.com/ternarybob/scrivo/internal/models"
)

// Crawler gathers text context from a seed website.
type Crawler interface {
	// Crawl fetches the seed page (and optionally a few high-value same-origin
	// pages) and returns deduplicated, capped text context.
	Crawl(ctx context.Context, seedURL string) (*models.CrawlResult, error)
}

// ContentGenerator produces raw article text from crawl context and job input.
// Implementations make exactly one provider call per invocation; retries are
// the worker's concern.
type ContentGenerator interface {
	Generate(ctx context.Context, input models.JobInput, siteContext string) (string, error)

	// Provider names the backing model provider, e.g. "claude" or "gemini".
	Provider() string
}

// OutputParser splits raw generated text into structured article sections.
type OutputParser interface {
	Parse(raw string) (*models.JobResult, error)
}

// Worker processes at most one job per invocation.
type Worker interface {
	RunOnce(ctx context.Context) (*models.RunResult, error)
}
