package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/search"
)

// fakeExtractor returns a canned JSON answer or error per URL and records
// the order of calls.
type fakeExtractor struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	block   map[string]chan struct{}
	calls   []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		answers: make(map[string]string),
		errs:    make(map[string]error),
		block:   make(map[string]chan struct{}),
	}
}

func (f *fakeExtractor) Extract(ctx context.Context, _, url string) (*model.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	wait := f.block[url]
	answer, hasAnswer := f.answers[url]
	err := f.errs[url]
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !hasAnswer {
		return nil, errors.New("page unreachable")
	}
	return model.ParseResult([]byte(answer))
}

func (f *fakeExtractor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeSearch returns canned results keyed by query and records queries.
type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]search.Result
	all     []search.Result
	err     error
	queries []string
	ranges  []model.TimeRange
}

func (f *fakeSearch) Search(_ context.Context, query string, tr model.TimeRange) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.ranges = append(f.ranges, tr)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return f.all, nil
}

func mustResult(t *testing.T, s string) *model.Result {
	t.Helper()
	r, err := model.ParseResult([]byte(s))
	require.NoError(t, err)
	return r
}

const (
	validAnswer   = `{"Actual Market Size": {"Estimated Market Size": "USD 4 billion", "Description": "Valued at USD 4 billion in 2023."}}`
	invalidAnswer = `{"Actual Market Size": {"Estimated Market Size": "NA", "Description": "No figure given."}}`
)
