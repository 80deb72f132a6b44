// -----------------------------------------------------------------------
// Crawler service: fetches a seed site and condenses it into plain text
// context for article generation. The seed page is mandatory; a handful of
// high-value same-origin pages are added on a best-effort basis.
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
	"golang.org/x/time/rate"
)

// Service implements interfaces.Crawler over plain HTTP with goquery parsing.
type Service struct {
	config  common.CrawlerConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewService creates a crawler from configuration. The rate limiter paces
// page fetches across the whole crawl.
func NewService(config common.CrawlerConfig, logger arbor.ILogger) interfaces.Crawler {
	return &Service{
		config: config,
		client: &http.Client{
			Timeout: config.FetchTimeoutDuration(),
		},
		limiter: rate.NewLimiter(rate.Every(config.RequestDelayDuration()), 1),
		logger:  logger,
	}
}

// Crawl fetches the seed URL, extracts its text, then follows the highest
// ranked same-origin links up to the configured page budget. Secondary page
// failures are tolerated; a seed failure is fatal.
func (s *Service) Crawl(ctx context.Context, seedURL string) (*models.CrawlResult, error) {
	seedDoc, err := s.fetchDocument(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	pages := []models.PageRef{{URL: seedURL, Title: pageTitle(seedDoc)}}

	// Collect links before boilerplate removal strips the nav.
	links := rankLinks(extractSameOriginLinks(seedDoc, seedURL), s.config.MaxPages-1)
	lines := extractTextLines(seedDoc)
	for _, page := range s.fetchSecondaryPages(ctx, links) {
		pages = append(pages, page.ref)
		lines = append(lines, page.lines...)
	}

	text, wordCount := buildContext(lines, s.config.MaxContextWords)
	if wordCount < s.config.MinContextWords {
		return nil, fmt.Errorf("%w: %d words from %d page(s) of %s (likely JS-rendered or blocked)",
			ErrInsufficientContent, wordCount, len(pages), seedURL)
	}

	s.logger.Info().
		Str("url", seedURL).
		Int("pages", len(pages)).
		Int("words", wordCount).
		Msg("Crawl completed")

	return &models.CrawlResult{
		Context:   text,
		Pages:     pages,
		WordCount: wordCount,
	}, nil
}

// secondaryPage is one successfully fetched non-seed page.
type secondaryPage struct {
	ref   models.PageRef
	lines []string
}

// fetchSecondaryPages fetches the ranked links with at most the configured
// number of concurrent fetches, all paced by the shared rate limiter.
// Failed pages are skipped; results keep the ranked order.
func (s *Service) fetchSecondaryPages(ctx context.Context, links []string) []secondaryPage {
	if len(links) == 0 {
		return nil
	}

	concurrency := s.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*secondaryPage, len(links))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, link := range links {
		wg.Add(1)
		go func(i int, link string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			doc, err := s.fetchDocument(ctx, link)
			if err != nil {
				s.logger.Debug().Err(err).Str("url", link).Msg("Skipping secondary page")
				return
			}
			results[i] = &secondaryPage{
				ref:   models.PageRef{URL: link, Title: pageTitle(doc)},
				lines: extractTextLines(doc),
			}
		}(i, link)
	}
	wg.Wait()

	var pages []secondaryPage
	for _, result := range results {
		if result != nil {
			pages = append(pages, *result)
		}
	}
	return pages
}

// fetchDocument fetches one page, bounded by the fetch timeout and paced by
// the crawl rate limiter, and parses it with goquery.
func (s *Service) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("unsupported content type %s", contentType)}
	}

	body := io.LimitReader(resp.Body, s.config.MaxBodySize)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("parse HTML: %w", err)}
	}
	return doc, nil
}

func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
