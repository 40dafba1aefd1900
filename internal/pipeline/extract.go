package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-insights/internal/model"
)

// ContentExtractor reads a page and returns the figures the instruction asks for.
type ContentExtractor interface {
	Extract(ctx context.Context, instruction, url string) (*model.Result, error)
}

// Engine resolves one (topic, kind) pair from its candidate URLs. It returns
// at most one result: the first valid one, else the last attempt, else none.
type Engine interface {
	Extract(ctx context.Context, kind model.PromptKind, instruction string, urls []string, topic string) ([]model.RawResult, error)
}

// SequentialEngine tries candidates one at a time in order and stops at the
// first valid result.
type SequentialEngine struct {
	extractor   ContentExtractor
	callTimeout time.Duration
}

// NewSequentialEngine creates a SequentialEngine. callTimeout bounds each
// extraction call; zero disables the bound.
func NewSequentialEngine(extractor ContentExtractor, callTimeout time.Duration) *SequentialEngine {
	return &SequentialEngine{extractor: extractor, callTimeout: callTimeout}
}

// Extract implements Engine. A failed URL is logged and skipped, never
// retried. Cancellation of ctx and upstream service errors are returned.
func (e *SequentialEngine) Extract(ctx context.Context, kind model.PromptKind, instruction string, urls []string, topic string) ([]model.RawResult, error) {
	var last *model.RawResult
	for _, u := range urls {
		res, err := attempt(ctx, e.extractor, e.callTimeout, kind, instruction, u, topic)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		last = res
		if Valid(res.Result) {
			zap.L().Info("pipeline: valid result found",
				zap.String("topic", topic),
				zap.String("kind", string(kind)),
				zap.String("url", u),
			)
			return []model.RawResult{*last}, nil
		}
	}
	return fallback(last, kind, topic), nil
}

// ConcurrentEngine fans candidates out over a bounded worker pool. The first
// valid result by completion order wins, so the winner can differ between
// runs. Once a winner is known no new calls start; calls already in flight
// run to completion and their results are ignored.
type ConcurrentEngine struct {
	extractor   ContentExtractor
	callTimeout time.Duration
	workers     int
}

// NewConcurrentEngine creates a ConcurrentEngine with the given pool size
// (default 5).
func NewConcurrentEngine(extractor ContentExtractor, workers int, callTimeout time.Duration) *ConcurrentEngine {
	if workers <= 0 {
		workers = 5
	}
	return &ConcurrentEngine{extractor: extractor, callTimeout: callTimeout, workers: workers}
}

// Extract implements Engine.
func (e *ConcurrentEngine) Extract(ctx context.Context, kind model.PromptKind, instruction string, urls []string, topic string) ([]model.RawResult, error) {
	var (
		mu     sync.Mutex
		winner *model.RawResult
		last   *model.RawResult
		fatal  error
	)
	stopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return winner != nil || fatal != nil
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, u := range urls {
		if stopped() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The slot may have opened after a winner was chosen.
			if stopped() {
				return nil
			}
			res, err := attempt(ctx, e.extractor, e.callTimeout, kind, instruction, u, topic)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fatal == nil {
					fatal = err
				}
				return nil
			}
			if res == nil || winner != nil {
				return nil
			}
			last = res
			if Valid(res.Result) {
				winner = res
				zap.L().Info("pipeline: valid result found",
					zap.String("topic", topic),
					zap.String("kind", string(kind)),
					zap.String("url", u),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if winner != nil {
		return []model.RawResult{*winner}, nil
	}
	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: extract cancelled")
	}
	return fallback(last, kind, topic), nil
}

// attempt runs one extraction call. It returns (nil, nil) when the URL
// failed for a reason local to that URL, and an error only when the run
// cannot continue.
func attempt(ctx context.Context, ex ContentExtractor, timeout time.Duration, kind model.PromptKind, instruction, url, topic string) (*model.RawResult, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := ex.Extract(callCtx, instruction, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pipeline: extract cancelled")
		}
		if model.IsUpstream(err) {
			return nil, eris.Wrapf(err, "pipeline: extract %q for %q", kind, topic)
		}
		zap.L().Warn("pipeline: extraction failed, trying next candidate",
			zap.String("topic", topic),
			zap.String("kind", string(kind)),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, nil
	}
	if result == nil {
		result = model.NewResult()
	}
	return &model.RawResult{Result: result, Topic: topic, URL: url, AnalysisType: kind}, nil
}

func fallback(last *model.RawResult, kind model.PromptKind, topic string) []model.RawResult {
	if last == nil {
		return nil
	}
	zap.L().Info("pipeline: no valid result, keeping last attempt",
		zap.String("topic", topic),
		zap.String("kind", string(kind)),
		zap.String("url", last.URL),
	)
	return []model.RawResult{*last}
}
