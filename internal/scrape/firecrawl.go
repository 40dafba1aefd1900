package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/resilience"
	"github.com/sells-group/market-insights/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker("firecrawl", 5, 2*time.Minute),
	}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true unless the circuit breaker is open.
func (f *FirecrawlAdapter) Supports(_ string) bool { return !f.breaker.Open() }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             targetURL,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		})
		if err != nil {
			var apiErr *firecrawl.APIError
			if errors.As(err, &apiErr) {
				return nil, resilience.ClassifyHTTPStatus(err, apiErr.StatusCode)
			}
			return nil, err
		}
		text := strings.TrimSpace(resp.Data.Markdown)
		if text == "" {
			return nil, eris.New("firecrawl: empty page")
		}
		pageURL := resp.Data.Metadata.SourceURL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &Page{
			URL:    pageURL,
			Title:  resp.Data.Metadata.Title,
			Text:   text,
			Source: f.Name(),
		}, nil
	})
}
