// Package llm adapts language model APIs to a plain text-generation call.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/pkg/anthropic"
	"github.com/sells-group/market-insights/pkg/perplexity"
)

// TextGenerator produces free text for a prompt. An empty model selects the
// adapter's default. Provider failures are returned as *model.UpstreamError.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// GenerateFunc adapts a function to TextGenerator.
type GenerateFunc func(ctx context.Context, prompt, model string) (string, error)

// Generate implements TextGenerator.
func (f GenerateFunc) Generate(ctx context.Context, prompt, model string) (string, error) {
	return f(ctx, prompt, model)
}

// upstream wraps a provider failure unless the caller's context ended.
func upstream(ctx context.Context, service string, err error) error {
	if ctx.Err() != nil {
		return eris.Wrapf(ctx.Err(), "llm: %s generate", service)
	}
	return model.NewUpstreamError(service, err)
}

// Anthropic generates text with the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates a generator using defaultModel when callers pass none.
func NewAnthropic(client anthropic.Client, defaultModel string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{client: client, model: defaultModel, maxTokens: maxTokens}
}

// Generate implements TextGenerator.
func (a *Anthropic) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	if modelName == "" {
		modelName = a.model
	}
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     modelName,
		MaxTokens: a.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", upstream(ctx, "anthropic", err)
	}
	resp.Usage.LogCost(modelName, "generate")
	return strings.TrimSpace(resp.Text()), nil
}

// Perplexity generates text with the chat completions API.
type Perplexity struct {
	client perplexity.Client
}

// NewPerplexity creates a generator; the client's model applies when callers
// pass none.
func NewPerplexity(client perplexity.Client) *Perplexity {
	return &Perplexity{client: client}
}

// Generate implements TextGenerator.
func (p *Perplexity) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:    modelName,
		Messages: []perplexity.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", upstream(ctx, "perplexity", err)
	}
	return resp.Content(), nil
}
