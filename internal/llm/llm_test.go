package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/pkg/anthropic"
	anthropicmocks "github.com/sells-group/market-insights/pkg/anthropic/mocks"
	"github.com/sells-group/market-insights/pkg/perplexity"
)

type fakePerplexity struct {
	req  perplexity.ChatCompletionRequest
	resp *perplexity.ChatCompletionResponse
	err  error
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestAnthropic_Generate(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 512 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "name two markets"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: ` ["Food Market", "Alt Protein Market"] `}},
	}, nil)

	gen := NewAnthropic(client, "claude-haiku-4-5-20251001", 512)
	out, err := gen.Generate(context.Background(), "name two markets", "")
	require.NoError(t, err)
	assert.Equal(t, `["Food Market", "Alt Protein Market"]`, out)
}

func TestAnthropic_ModelOverride(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" && req.MaxTokens == 1024
	})).Return(&anthropic.MessageResponse{}, nil)

	_, err := NewAnthropic(client, "claude-haiku-4-5-20251001", 0).Generate(context.Background(), "p", "claude-sonnet-4-5-20250929")
	require.NoError(t, err)
}

func TestAnthropic_ErrorIsUpstream(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewAnthropic(client, "m", 16).Generate(context.Background(), "p", "")
	require.Error(t, err)
	assert.True(t, model.IsUpstream(err))
}

func TestAnthropic_CancelledIsNotUpstream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	_, err := NewAnthropic(client, "m", 16).Generate(ctx, "p", "")
	require.Error(t, err)
	assert.False(t, model.IsUpstream(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPerplexity_Generate(t *testing.T) {
	fake := &fakePerplexity{resp: &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: " Imagine if packaging could talk. "}}},
	}}

	out, err := NewPerplexity(fake).Generate(context.Background(), "provoke", "sonar-pro")
	require.NoError(t, err)
	assert.Equal(t, "Imagine if packaging could talk.", out)
	assert.Equal(t, "sonar-pro", fake.req.Model)
	require.Len(t, fake.req.Messages, 1)
	assert.Equal(t, "user", fake.req.Messages[0].Role)
}

func TestPerplexity_ErrorIsUpstream(t *testing.T) {
	fake := &fakePerplexity{err: &perplexity.StatusError{StatusCode: 401, Body: "bad key"}}

	_, err := NewPerplexity(fake).Generate(context.Background(), "p", "")
	require.Error(t, err)
	assert.True(t, model.IsUpstream(err))

	var se *perplexity.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 401, se.StatusCode)
}

func TestGenerateFunc(t *testing.T) {
	var gen TextGenerator = GenerateFunc(func(_ context.Context, prompt, model string) (string, error) {
		return prompt + "|" + model, nil
	})
	out, err := gen.Generate(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a|b", out)
}
