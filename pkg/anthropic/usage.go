package anthropic

import (
	"strings"

	"go.uber.org/zap"
)

// TokenUsage is the token count billed for one or more messages.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Add returns the sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:              u.InputTokens + o.InputTokens,
		OutputTokens:             u.OutputTokens + o.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens + o.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens + o.CacheReadInputTokens,
	}
}

// pricing is USD per million input and output tokens by model family. The
// longest matching prefix wins, so dated and undated model IDs both resolve.
var pricing = []struct {
	prefix  string
	in, out float64
}{
	{"claude-haiku-4-5", 1.00, 5.00},
	{"claude-3-5-haiku", 0.80, 4.00},
	{"claude-sonnet-4", 3.00, 15.00},
	{"claude-opus-4-5", 5.00, 25.00},
	{"claude-opus-4", 15.00, 75.00},
}

func priceFor(model string) (in, out float64, ok bool) {
	best := -1
	for i, p := range pricing {
		if strings.HasPrefix(model, p.prefix) && (best < 0 || len(p.prefix) > len(pricing[best].prefix)) {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return pricing[best].in, pricing[best].out, true
}

// EstimateCost returns the USD cost of u on model, or 0 for unknown models.
// Cache writes bill at 1.25x input and cache reads at 0.1x.
func (u TokenUsage) EstimateCost(model string) float64 {
	in, out, ok := priceFor(model)
	if !ok {
		return 0
	}
	const mtok = 1e6
	return float64(u.InputTokens)/mtok*in +
		float64(u.OutputTokens)/mtok*out +
		float64(u.CacheCreationInputTokens)/mtok*in*1.25 +
		float64(u.CacheReadInputTokens)/mtok*in*0.1
}

// LogCost logs u and its estimated cost for the named pipeline phase.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("anthropic: usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
