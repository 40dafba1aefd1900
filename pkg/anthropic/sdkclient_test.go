package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a client pointing at a local test server.
func newTestClient(baseURL string) Client {
	return NewClient("test-key", WithBaseURL(baseURL), WithMaxRetries(0))
}

func writeMessage(w http.ResponseWriter, id, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   id,
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                10,
			"output_tokens":               5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		},
	})
}

func writeAPIError(w http.ResponseWriter, status int, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"type": "error",
		"error": map[string]any{
			"type":    typ,
			"message": typ,
		},
	})
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		writeMessage(w, "msg_test_001", `{"Actual Market Size": {"Estimated Market Size": "$4B"}}`)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Contains(t, resp.Text(), "Estimated Market Size")
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	assert.Equal(t, int64(5), resp.Usage.OutputTokens)
}

func TestSDKClient_CreateMessage_WithSystemAndTemp(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeMessage(w, "msg_sys", "ok")
	}))
	defer ts.Close()

	temp := 0.0
	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   128,
		System:      BuildCachedSystemBlocks("Return JSON only.", "5m"),
		Messages:    []Message{{Role: "user", Content: "Ack"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_sys", resp.ID)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	assert.Equal(t, "Return JSON only.", block["text"])
	assert.NotNil(t, block["cache_control"])
	assert.Equal(t, float64(0), body["temperature"])
}

func TestSDKClient_CreateMessage_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusInternalServerError, "api_error")
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.False(t, IsAuthError(err))
	assert.True(t, IsOutage(err))
}

func TestSDKClient_CreateMessage_AuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "authentication_error")
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 16,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestIsOutage(t *testing.T) {
	tests := []struct {
		status int
		typ    string
		want   bool
	}{
		{http.StatusBadRequest, "invalid_request_error", false},
		{http.StatusTooManyRequests, "rate_limit_error", false},
		{http.StatusInternalServerError, "api_error", true},
		{529, "overloaded_error", true},
	}
	for _, tt := range tests {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeAPIError(w, tt.status, tt.typ)
		}))
		_, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 16,
			Messages:  []Message{{Role: "user", Content: "Hello"}},
		})
		ts.Close()
		require.Error(t, err, tt.typ)
		assert.Equal(t, tt.want, IsOutage(err), tt.typ)
	}

	assert.False(t, IsOutage(nil))
	assert.False(t, IsOutage(context.Canceled))
	assert.False(t, IsOutage(context.DeadlineExceeded))
	assert.True(t, IsOutage(errors.New("dial tcp: connection refused")))
}

func TestIsAuthError_PlainError(t *testing.T) {
	assert.False(t, IsAuthError(errors.New("boom")))
	assert.False(t, IsAuthError(nil))
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", resp.Text())

	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("prompt", "1h")
	require.Len(t, blocks, 1)
	assert.Equal(t, "prompt", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)

	assert.Nil(t, BuildCachedSystemBlocks("", "1h"))
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
		{Role: "other", Content: "x"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Equal(t, "user", string(out[2].Role))
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 6.0, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.InDelta(t, 6.0, u.EstimateCost("claude-haiku-4-5"), 0.001)
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.InDelta(t, 30.0, u.EstimateCost("claude-opus-4-5-20251101"), 0.001)
	assert.InDelta(t, 90.0, u.EstimateCost("claude-opus-4-1-20250805"), 0.001)
	assert.Zero(t, u.EstimateCost("unknown-model"))

	cached := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	assert.InDelta(t, 1.25+0.1, cached.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 10, OutputTokens: 2, CacheReadInputTokens: 5}
	b := TokenUsage{InputTokens: 1, OutputTokens: 3, CacheCreationInputTokens: 7}
	assert.Equal(t, TokenUsage{InputTokens: 11, OutputTokens: 5, CacheCreationInputTokens: 7, CacheReadInputTokens: 5}, a.Add(b))
}

func TestMessageResponse_Truncated(t *testing.T) {
	assert.True(t, (&MessageResponse{StopReason: "max_tokens"}).Truncated())
	assert.False(t, (&MessageResponse{StopReason: "end_turn"}).Truncated())
	var nilResp *MessageResponse
	assert.False(t, nilResp.Truncated())
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 1, OutputTokens: 1}.LogCost("claude-haiku-4-5-20251001", "extract")
	})
}
