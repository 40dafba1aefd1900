// Package serpapi provides a client for the SerpApi Google search endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://serpapi.com"

// Client defines the SerpApi operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest configures a Google search.
type SearchRequest struct {
	Query string
	// Num is the requested result count. Zero uses the API default.
	Num int
	// TBS is Google's raw time filter token, e.g. "qdr:m".
	TBS string
}

// SearchResponse is the subset of the SerpApi payload the pipeline uses.
type SearchResponse struct {
	SearchMetadata SearchMetadata  `json:"search_metadata"`
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// SearchMetadata describes the search job.
type SearchMetadata struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrganicResult is a single organic Google result.
type OrganicResult struct {
	Position                int      `json:"position"`
	Title                   string   `json:"title"`
	Link                    string   `json:"link"`
	Date                    string   `json:"date"`
	Snippet                 string   `json:"snippet"`
	SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
}

// HighlightedSnippet joins the highlighted words, falling back to the snippet.
func (r OrganicResult) HighlightedSnippet() string {
	if len(r.SnippetHighlightedWords) > 0 {
		return strings.Join(r.SnippetHighlightedWords, " ")
	}
	return r.Snippet
}

// APIError is returned when SerpApi answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithEngine overrides the search engine (default "google").
func WithEngine(engine string) Option {
	return func(c *httpClient) {
		c.engine = engine
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	engine  string
	http    *http.Client
}

// NewClient creates a new SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		engine:  "google",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", req.Query)
	params.Set("api_key", c.apiKey)
	if req.Num > 0 {
		params.Set("num", strconv.Itoa(req.Num))
	}
	if req.TBS != "" {
		params.Set("tbs", req.TBS)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response body")
	}

	var result SearchResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Error
		if decodeErr != nil || msg == "" {
			msg = string(body)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, eris.Wrap(decodeErr, "serpapi: unmarshal response")
	}

	// SerpApi reports "no results" as a 200 with an error string.
	if result.Error != "" && len(result.OrganicResults) == 0 {
		if strings.Contains(strings.ToLower(result.Error), "hasn't returned any results") {
			return &result, nil
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error}
	}

	return &result, nil
}
