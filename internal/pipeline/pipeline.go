package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/model"
)

// DefaultMaxCandidates is how many candidate URLs are tried per topic and kind.
const DefaultMaxCandidates = 50

// ProgressFunc receives the run stage and how many of total topics it has
// finished.
type ProgressFunc func(stage model.RunStatus, done, total int)

// Pipeline runs candidate collection, extraction and transformation.
type Pipeline struct {
	collector     *Collector
	engine        Engine
	maxCandidates int
}

// New creates a Pipeline. maxCandidates <= 0 uses DefaultMaxCandidates.
func New(collector *Collector, engine Engine, maxCandidates int) *Pipeline {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Pipeline{collector: collector, engine: engine, maxCandidates: maxCandidates}
}

// RunTopic resolves every prompt kind for topic against table, in kind
// order, and concatenates the results (zero or one per kind).
func (p *Pipeline) RunTopic(ctx context.Context, table *model.CandidateTable, topic string) ([]model.RawResult, error) {
	log := zap.L().With(zap.String("topic", topic))

	var results []model.RawResult
	for _, kind := range model.PromptKinds() {
		urls := model.URLs(table.Filter(topic, kind, p.maxCandidates))
		if len(urls) == 0 {
			log.Info("pipeline: no candidates", zap.String("kind", string(kind)))
			continue
		}
		got, err := p.engine.Extract(ctx, kind, ExtractionInstruction(kind, topic), urls, topic)
		if err != nil {
			return nil, err
		}
		results = append(results, got...)
	}
	return results, nil
}

// Run processes every topic of req and returns the insights keyed by topic.
// Every requested topic appears in the output, with an empty list when
// nothing was found. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, req model.RunRequest, progress ProgressFunc) (*model.TopicInsights, error) {
	if progress == nil {
		progress = func(model.RunStatus, int, int) {}
	}
	topics := uniqueTopics(req.Topics)
	if len(topics) == 0 {
		return nil, eris.New("pipeline: no topics")
	}
	if !req.TimeRange.Valid() {
		return nil, eris.Errorf("pipeline: invalid time range %q", req.TimeRange)
	}

	log := zap.L().With(zap.String("domain", req.Domain), zap.Int("topics", len(topics)))
	start := time.Now()

	progress(model.RunStatusCollecting, 0, len(topics))
	table := model.NewCandidateTable()
	for i, topic := range topics {
		part, err := p.collector.CollectTopic(ctx, topic, req.Domain, req.TimeRange)
		if err != nil {
			return nil, err
		}
		table.Append(part)
		progress(model.RunStatusCollecting, i+1, len(topics))
	}
	log.Info("pipeline: candidates collected",
		zap.Int("candidates", table.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	progress(model.RunStatusExtracting, 0, len(topics))
	insights := model.NewTopicInsights()
	for i, topic := range topics {
		raw, err := p.RunTopic(ctx, table, topic)
		if err != nil {
			return nil, err
		}
		insights.Ensure(topic)
		insights.Merge(Transform(raw))
		progress(model.RunStatusExtracting, i+1, len(topics))
	}

	log.Info("pipeline: run complete",
		zap.Int("insights", insights.Count()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return insights, nil
}

func uniqueTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
