package crawler

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// valuablePathTerms mark pages that typically describe what a business does.
var valuablePathTerms = []string{
	"about", "service", "services", "product", "products",
	"pricing", "features", "solutions", "contact", "team", "company",
}

type rankedLink struct {
	url   string
	score int
}

// extractSameOriginLinks collects unique absolute links from the document
// that share scheme and host with the seed URL.
func extractSameOriginLinks(doc *goquery.Document, seedURL string) []rankedLink {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{normalizeLink(base): true}
	var links []rankedLink

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || shouldSkipLink(href) {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != base.Scheme || resolved.Host != base.Host {
			return
		}

		key := normalizeLink(resolved)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, rankedLink{url: key, score: scoreLink(resolved)})
	})

	return links
}

// rankLinks orders links by descending score and returns at most limit URLs.
func rankLinks(links []rankedLink, limit int) []string {
	if limit <= 0 || len(links) == 0 {
		return nil
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].score > links[j].score
	})

	if len(links) > limit {
		links = links[:limit]
	}
	urls := make([]string, len(links))
	for i, link := range links {
		urls[i] = link.url
	}
	return urls
}

// scoreLink prefers short, query-free paths containing high-value terms.
func scoreLink(u *url.URL) int {
	score := 0

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Path == "" || u.Path == "/" {
		score += 20
	} else {
		score += 20 - 5*len(segments)
	}

	for _, term := range valuablePathTerms {
		for _, segment := range segments {
			if strings.Contains(strings.ToLower(segment), term) {
				score += 15
				break
			}
		}
	}

	if u.RawQuery != "" {
		score -= 10
	}
	return score
}

// shouldSkipLink filters hrefs that cannot lead to a content page.
func shouldSkipLink(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "ftp:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// normalizeLink strips fragments and trailing slashes so variants of the
// same page dedupe.
func normalizeLink(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	normalized := clone.String()
	return strings.TrimSuffix(normalized, "/")
}
