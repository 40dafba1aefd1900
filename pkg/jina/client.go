// Package jina is a client for the Jina AI reader (r.jina.ai) and search
// (s.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/resilience"
)

const maxResponseBytes = 16 << 20

// Client reads pages and searches the web through Jina AI.
type Client interface {
	// Read returns the main text of targetURL.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search returns web results for query.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the reader's JSON envelope.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData is one read page.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage reports tokens billed for a read.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the search endpoint's JSON envelope.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one web result.
type SearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	Description   string `json:"description"`
	PublishedTime string `json:"publishedTime"`
}

// StatusError is a non-200 answer that was not retried, or the last one
// after retries ran out.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: unexpected status %d: %s", e.StatusCode, e.Body)
}

// SearchOption tunes one Search call.
type SearchOption func(*searchOpts)

type searchOpts struct {
	siteFilter string
	noContent  bool
}

// WithSiteFilter limits results to one site.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) { o.siteFilter = domain }
}

// WithoutContent skips fetching result pages; only titles, URLs and
// descriptions come back.
func WithoutContent() SearchOption {
	return func(o *searchOpts) { o.noContent = true }
}

// Option configures NewClient.
type Option func(*httpClient)

// WithBaseURL overrides the reader root.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithSearchBaseURL overrides the search root.
func WithSearchBaseURL(url string) Option {
	return func(c *httpClient) { c.searchBaseURL = url }
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetry replaces the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	apiKey        string
	baseURL       string
	searchBaseURL string
	retry         resilience.RetryConfig
	http          *http.Client
}

// NewClient returns a Client authenticated with apiKey. Transient statuses
// and network errors are retried twice.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.WithRetries(2)
	retry.InitialBackoff = time.Second
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       "https://r.jina.ai",
		searchBaseURL: "https://s.jina.ai",
		retry:         retry,
		http:          &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	header := http.Header{}
	header.Set("X-Return-Format", "text")

	body, status, err := c.get(ctx, "read", c.baseURL+"/"+targetURL, header)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{StatusCode: status, Body: string(body)}
	}

	var out ReadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal read response")
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	reqURL := c.searchBaseURL + "/" + url.PathEscape(query)
	if so.siteFilter != "" {
		reqURL += "?site=" + url.QueryEscape(so.siteFilter)
	}
	header := http.Header{}
	if so.noContent {
		header.Set("X-Respond-With", "no-content")
	}

	body, status, err := c.get(ctx, "search", reqURL, header)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		// Jina answers 422 when the query has no results.
		return &SearchResponse{Code: status}, nil
	default:
		return nil, &StatusError{StatusCode: status, Body: string(body)}
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	return &out, nil
}

type reply struct {
	body   []byte
	status int
}

// get performs an authenticated GET, retrying transient statuses (honoring
// Retry-After) and network errors. Other statuses are returned to the caller.
func (c *httpClient) get(ctx context.Context, op, reqURL string, header http.Header) ([]byte, int, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("jina", op)

	r, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (reply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return reply{}, eris.Wrap(err, "create request")
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return reply{}, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return reply{}, eris.Wrap(err, "read response body")
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return reply{}, resilience.ClassifyHTTPResponse(
				&StatusError{StatusCode: resp.StatusCode, Body: string(body)},
				resp.StatusCode, resp.Header,
			)
		}
		return reply{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, eris.Wrapf(err, "jina: %s request failed", op)
	}
	return r.body, r.status, nil
}
