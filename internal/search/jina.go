package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/pkg/jina"
)

// Jina searches the web through Jina AI Search. Time ranges are not
// supported by the API and are ignored.
type Jina struct {
	client jina.Client
	opts   Options
}

// NewJina creates a Jina-backed provider.
func NewJina(client jina.Client, opts Options) *Jina {
	return &Jina{client: client, opts: opts}
}

// Search implements Provider.
func (j *Jina) Search(ctx context.Context, query string, timeRange model.TimeRange) ([]Result, error) {
	if timeRange != model.TimeRangeAny {
		zap.L().Debug("search: jina ignores time range", zap.String("time_range", string(timeRange)))
	}

	resp, err := call(ctx, "jina", j.opts, func(ctx context.Context) (*jina.SearchResponse, error) {
		return j.client.Search(ctx, query, jina.WithoutContent())
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Data))
	for _, r := range resp.Data {
		link := strings.TrimSpace(r.URL)
		if link == "" {
			continue
		}
		results = append(results, Result{
			Title:          r.Title,
			Date:           r.PublishedTime,
			URL:            link,
			MatchedSnippet: r.Description,
		})
	}
	return results, nil
}
