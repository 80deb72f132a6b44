package models

// CrawlResult is the condensed text context gathered from a seed site.
type CrawlResult struct {
	Context   string    `json:"context"`
	Pages     []PageRef `json:"pages"`
	WordCount int       `json:"word_count"`
}
