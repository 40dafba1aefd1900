// Package search runs web searches for candidate insight pages.
package search

import (
	"context"
	"time"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/resilience"
)

// Result is a single web search hit.
type Result struct {
	Title          string `json:"title"`
	Date           string `json:"date,omitempty"`
	URL            string `json:"url"`
	MatchedSnippet string `json:"matched_snippet,omitempty"`
}

// Provider runs a web search. Failures that survive retries are returned as
// *model.UpstreamError.
type Provider interface {
	Search(ctx context.Context, query string, timeRange model.TimeRange) ([]Result, error)
}

// Options tunes the retry and timeout behavior shared by all adapters.
type Options struct {
	Retries int
	Timeout time.Duration // per attempt; zero means no extra deadline
	Backoff time.Duration // initial retry backoff; zero uses the default
}

// call runs fn with retries and a per-attempt timeout, then marks a final
// failure as upstream for service.
func call[T any](ctx context.Context, service string, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := resilience.WithRetries(opts.Retries)
	cfg.OnRetry = resilience.RetryLogger(service, "search")
	if opts.Backoff > 0 {
		cfg.InitialBackoff = opts.Backoff
	}

	val, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		return fn(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return val, ctx.Err()
		}
		return val, model.NewUpstreamError(service, err)
	}
	return val, nil
}
