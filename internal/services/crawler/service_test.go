package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
)

func testConfig() common.CrawlerConfig {
	return common.CrawlerConfig{
		UserAgent:       "test-agent",
		MaxPages:        3,
		Concurrency:     1,
		FetchTimeout:    "5s",
		RequestDelay:    "1ms",
		MaxBodySize:     1 << 20,
		MinContextWords: 5,
		MaxContextWords: 1500,
	}
}

func newCrawler(config common.CrawlerConfig) *Service {
	return NewService(config, arbor.NewLogger()).(*Service)
}

const seedHTML = `<!DOCTYPE html>
<html><head><title>Acme Plumbing</title></head>
<body>
<nav><a href="/about">About us</a><a href="/pricing">Pricing</a><a href="/blog/2024/05/some-post">Post</a></nav>
<script>var tracking = true;</script>
<h1>Acme Plumbing serves the whole Springfield area</h1>
<p>We repair burst pipes, blocked drains and leaking taps every day.</p>
<p>We repair burst pipes, blocked drains and leaking taps every day.</p>
<li>OK</li>
<footer>Copyright Acme</footer>
</body></html>`

const aboutHTML = `<html><head><title>About</title></head><body>
<h2>About Acme Plumbing and our licensed team</h2>
<p>Our plumbers have served local homes for twenty years running.</p>
</body></html>`

func TestCrawlExtractsAndDedupes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(seedHTML))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(aboutHTML))
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	service := newCrawler(testConfig())
	result, err := service.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if !strings.Contains(result.Context, "Acme Plumbing serves the whole Springfield area") {
		t.Errorf("heading text missing from context:\n%s", result.Context)
	}
	if strings.Contains(result.Context, "tracking") {
		t.Error("script content leaked into context")
	}
	if strings.Contains(result.Context, "Copyright") {
		t.Error("footer content leaked into context")
	}
	// The duplicated paragraph must appear exactly once.
	if strings.Count(result.Context, "burst pipes") != 1 {
		t.Errorf("duplicate line not collapsed:\n%s", result.Context)
	}
	// Fragments shorter than three words are dropped.
	if strings.Contains(result.Context, "OK") {
		t.Error("short fragment kept")
	}
	// The about page succeeded, pricing failed; both outcomes tolerated.
	if !strings.Contains(result.Context, "twenty years") {
		t.Error("secondary page text missing")
	}
	if len(result.Pages) != 2 {
		t.Errorf("pages = %d, want seed + about", len(result.Pages))
	}
	if result.WordCount != len(strings.Fields(result.Context)) {
		t.Errorf("word count %d does not match context", result.WordCount)
	}
}

func TestCrawlInsufficientContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Too little here.</p></body></html>`))
	}))
	defer server.Close()

	config := testConfig()
	config.MinContextWords = 50
	service := newCrawler(config)

	_, err := service.Crawl(context.Background(), server.URL)
	if !errors.Is(err, ErrInsufficientContent) {
		t.Errorf("err = %v, want ErrInsufficientContent", err)
	}
}

func TestCrawlSeedFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	service := newCrawler(testConfig())
	_, err := service.Crawl(context.Background(), server.URL)

	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if ferr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", ferr.StatusCode)
	}
}

func TestCrawlWordCap(t *testing.T) {
	var body strings.Builder
	body.WriteString("<html><body>")
	for i := 0; i < 50; i++ {
		body.WriteString("<p>sentence number with several distinct words inside it ")
		body.WriteString(strings.Repeat("x", i+1))
		body.WriteString("</p>")
	}
	body.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body.String()))
	}))
	defer server.Close()

	config := testConfig()
	config.MaxContextWords = 40
	service := newCrawler(config)

	result, err := service.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if result.WordCount > 40 {
		t.Errorf("word count %d exceeds cap", result.WordCount)
	}
}

func TestCrawlBoundsConcurrentFetches(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
<nav><a href="/about">About</a><a href="/pricing">Pricing</a><a href="/services">Services</a><a href="/contact">Contact</a></nav>
<p>Seed page body with enough words to count here.</p>
</body></html>`))
	})
	secondary := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><p>Distinct body text for page %s here.</p></body></html>`, r.URL.Path)
	}
	for _, path := range []string{"/about", "/pricing", "/services", "/contact"} {
		mux.HandleFunc(path, secondary)
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	config := testConfig()
	config.MaxPages = 5
	config.Concurrency = 2
	service := newCrawler(config)

	result, err := service.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(result.Pages) != 5 {
		t.Errorf("pages = %d, want seed + 4 secondary", len(result.Pages))
	}
	if maxInFlight > 2 {
		t.Errorf("max concurrent fetches = %d, want at most 2", maxInFlight)
	}
}

func TestRankLinksPrefersValuableShortPaths(t *testing.T) {
	links := []rankedLink{
		{url: "https://e.com/blog/2024/05/some-post", score: 0},
		{url: "https://e.com/about", score: 0},
		{url: "https://e.com/pricing", score: 0},
		{url: "https://e.com/search?q=x", score: 0},
	}
	for i := range links {
		u, _ := url.Parse(links[i].url)
		links[i].score = scoreLink(u)
	}

	ranked := rankLinks(links, 2)
	if len(ranked) != 2 {
		t.Fatalf("ranked = %v", ranked)
	}
	for _, got := range ranked {
		if got != "https://e.com/about" && got != "https://e.com/pricing" {
			t.Errorf("low-value link ranked highly: %s", got)
		}
	}
}

func TestShouldSkipLink(t *testing.T) {
	skip := []string{"#anchor", "javascript:void(0)", "mailto:a@b.com", "tel:123", ""}
	for _, href := range skip {
		if !shouldSkipLink(href) {
			t.Errorf("%q not skipped", href)
		}
	}
	if shouldSkipLink("/about") {
		t.Error("relative link skipped")
	}
}
