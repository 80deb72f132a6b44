package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector lists elements that never carry article-worthy text.
const boilerplateSelector = "script, style, noscript, nav, header, footer, aside, form, iframe, svg"

// contentSelector lists elements whose text contributes to context.
const contentSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// extractTextLines strips boilerplate from the document and returns the
// cleaned text of each content element, shortest fragments dropped.
func extractTextLines(doc *goquery.Document) []string {
	doc.Find(boilerplateSelector).Remove()
	doc.Find("[class*='cookie'], [class*='popup'], [id*='cookie']").Remove()

	var lines []string
	doc.Find(contentSelector).Each(func(_ int, sel *goquery.Selection) {
		text := cleanWhitespace(sel.Text())
		// Fragments under a few words are menu labels or buttons.
		if len(strings.Fields(text)) < 3 {
			return
		}
		lines = append(lines, text)
	})
	return lines
}

// cleanWhitespace collapses runs of whitespace into single spaces.
func cleanWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// buildContext deduplicates near-identical lines, joins them, and truncates
// to the word budget. Returns the context text and its word count.
func buildContext(lines []string, maxWords int) (string, int) {
	seen := make(map[string]bool)
	var kept []string
	total := 0

	for _, line := range lines {
		key := dedupeKey(line)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		words := strings.Fields(line)
		if maxWords > 0 && total+len(words) > maxWords {
			remaining := maxWords - total
			if remaining > 0 {
				kept = append(kept, strings.Join(words[:remaining], " "))
				total = maxWords
			}
			break
		}
		kept = append(kept, line)
		total += len(words)
	}

	return strings.Join(kept, "\n"), total
}

// dedupeKey normalizes a line so that case and whitespace variants of the
// same sentence collapse to one entry.
func dedupeKey(line string) string {
	return strings.ToLower(cleanWhitespace(line))
}
