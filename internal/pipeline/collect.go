package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/search"
)

// Collector finds candidate pages for each topic and prompt kind.
type Collector struct {
	prompts  *PromptBuilder
	searcher search.Provider
}

// NewCollector creates a Collector.
func NewCollector(prompts *PromptBuilder, searcher search.Provider) *Collector {
	return &Collector{prompts: prompts, searcher: searcher}
}

// Collect builds the candidate table for every topic in order. Any prompt or
// search failure stops collection and is returned.
func (c *Collector) Collect(ctx context.Context, topics []string, domain string, timeRange model.TimeRange) (*model.CandidateTable, error) {
	table := model.NewCandidateTable()
	for _, topic := range topics {
		part, err := c.CollectTopic(ctx, topic, domain, timeRange)
		if err != nil {
			return nil, err
		}
		table.Append(part)
	}
	return table, nil
}

// CollectTopic runs every search prompt for one topic. URLs are deduplicated
// within each prompt kind, first hit wins.
func (c *Collector) CollectTopic(ctx context.Context, topic, domain string, timeRange model.TimeRange) (*model.CandidateTable, error) {
	log := zap.L().With(zap.String("topic", topic))

	prompts, err := c.prompts.Prompts(ctx, topic, domain)
	if err != nil {
		return nil, err
	}

	table := model.NewCandidateTable()
	for _, p := range prompts {
		results, err := c.searcher.Search(ctx, p.Query(topic), timeRange)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: search %q for %q", p.Kind, topic)
		}
		added := 0
		for _, r := range results {
			if table.Add(model.Candidate{Topic: topic, URL: strings.TrimSpace(r.URL), Prompt: p.Kind}) {
				added++
			}
		}
		log.Debug("pipeline: collected candidates",
			zap.String("kind", string(p.Kind)),
			zap.Int("results", len(results)),
			zap.Int("candidates", added),
		)
	}
	return table, nil
}
