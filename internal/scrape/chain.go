package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain is a Scraper list tried in priority order. The first page returned
// wins.
type Chain struct {
	PathMatcher *PathMatcher
	scrapers    []Scraper
}

// NewChain creates a Chain. URLs the matcher excludes are never fetched.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	return &Chain{PathMatcher: matcher, scrapers: scrapers}
}

// Names lists the scrapers in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.scrapers))
	for _, s := range c.scrapers {
		names = append(names, s.Name())
	}
	return names
}

// Scrape returns the first page any supporting scraper produces. When all
// of them fail the error carries each scraper's failure.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	if c.PathMatcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded by path matcher: %s", targetURL)
	}

	var errs []error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
		if err == nil {
			err = eris.New("no page returned")
		}
		zap.L().Debug("scrape: falling through",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		errs = append(errs, eris.Wrap(err, s.Name()))
	}
	if len(errs) == 0 {
		return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
	}
	return nil, eris.Wrapf(errors.Join(errs...), "scrape: all scrapers failed for %s", targetURL)
}
