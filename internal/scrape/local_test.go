package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-insights/internal/fetcher"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Plant-Based Meat Market Report</title></head>
<body>
<nav>Home | Reports | Contact</nav>
<article>
<h1>Plant-Based Meat Market Size, Share and Growth</h1>
<p>The global plant-based meat market size was valued at USD 5.6 billion in 2023 and is expected to expand at a compound annual growth rate of 19.4% from 2024 to 2030.</p>
<p>Rising consumer awareness of the health benefits of plant protein and a growing flexitarian population continue to drive demand across North America and Europe.</p>
<p>Investment in alternative protein startups reached USD 1.2 billion in 2023, down from the record levels seen in 2021, as investors focused on companies with a path to profitability.</p>
</article>
<footer>Copyright 2024</footer>
</body></html>`

func newTestLocalScraper() *LocalScraper {
	return NewLocalScraper(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      5 * time.Second,
		RateLimit:    100,
		RetryBackoff: time.Millisecond,
	}))
}

func TestLocalScraper_HTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page, err := newTestLocalScraper().Scrape(context.Background(), srv.URL+"/report")
	require.NoError(t, err)
	assert.Equal(t, "local_http", page.Source)
	assert.Equal(t, srv.URL+"/report", page.URL)
	assert.Contains(t, page.Text, "USD 5.6 billion")
	assert.NotContains(t, page.Text, "Copyright 2024")
}

func TestLocalScraper_PlainText(t *testing.T) {
	body := strings.Repeat("The edible packaging market grew 6.9% in 2023.\n", 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	page, err := newTestLocalScraper().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.Text, "edible packaging")
}

func TestLocalScraper_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Checking your browser before accessing example.com</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestLocalScraper().Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (cloudflare)")
}

func TestLocalScraper_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>Hi</p></body></html>"))
	}))
	defer srv.Close()

	_, err := newTestLocalScraper().Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty page")
}

func TestLocalScraper_UnsupportedType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	_, err := newTestLocalScraper().Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestLocalScraper_CorruptPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 this is not really a pdf"))
	}))
	defer srv.Close()

	_, err := newTestLocalScraper().Scrape(context.Background(), srv.URL+"/report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestLocalScraper_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestLocalScraper().Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local_http: fetch")
}

func TestHTMLText_ParagraphFallback(t *testing.T) {
	html := `<html><head><title> Short </title></head><body><div><p>Market valued at USD 2 billion.</p><ul><li>CAGR 8%</li></ul><script>var x = 1;</script></div></body></html>`
	title, text, err := htmlText([]byte(html), "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "Short", title)
	assert.Contains(t, text, "USD 2 billion")
	assert.Contains(t, text, "CAGR 8%")
	assert.NotContains(t, text, "var x")
}

func TestCleanLines(t *testing.T) {
	assert.Equal(t, "a\nb c", cleanLines("  a  \n\n\t\n b c \n"))
	assert.Equal(t, "", cleanLines(" \n "))
}
