// Package scrape turns candidate URLs into page text and structured
// extraction results.
package scrape

import "context"

// Page holds the main text of one URL with the scraper that produced it.
type Page struct {
	URL    string
	Title  string
	Text   string
	Source string // e.g. "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
