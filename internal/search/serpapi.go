package search

import (
	"context"
	"errors"
	"strings"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/resilience"
	"github.com/sells-group/market-insights/pkg/serpapi"
)

var tbsByRange = map[model.TimeRange]string{
	model.TimeRangeHour:  "qdr:h",
	model.TimeRangeDay:   "qdr:d",
	model.TimeRangeWeek:  "qdr:w",
	model.TimeRangeMonth: "qdr:m",
	model.TimeRangeYear:  "qdr:y",
}

// TBS returns Google's time filter token for r, or "" for no filter.
func TBS(r model.TimeRange) string {
	return tbsByRange[r]
}

// SerpAPI searches Google through SerpApi.
type SerpAPI struct {
	client serpapi.Client
	num    int
	opts   Options
}

// NewSerpAPI creates a SerpApi-backed provider requesting num results per query.
func NewSerpAPI(client serpapi.Client, num int, opts Options) *SerpAPI {
	return &SerpAPI{client: client, num: num, opts: opts}
}

// Search implements Provider.
func (s *SerpAPI) Search(ctx context.Context, query string, timeRange model.TimeRange) ([]Result, error) {
	resp, err := call(ctx, "serpapi", s.opts, func(ctx context.Context) (*serpapi.SearchResponse, error) {
		resp, err := s.client.Search(ctx, serpapi.SearchRequest{
			Query: query,
			Num:   s.num,
			TBS:   TBS(timeRange),
		})
		var apiErr *serpapi.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.ClassifyHTTPStatus(err, apiErr.StatusCode)
		}
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		results = append(results, Result{
			Title:          r.Title,
			Date:           r.Date,
			URL:            link,
			MatchedSnippet: r.HighlightedSnippet(),
		})
	}
	return results, nil
}
