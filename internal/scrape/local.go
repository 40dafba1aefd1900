package scrape

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/fetcher"
)

// minPageChars is the shortest text accepted as a real page.
const minPageChars = 100

// LocalScraper downloads pages directly and converts PDF or HTML to text.
// Free, no API calls. Falls through to Jina/Firecrawl when blocked.
type LocalScraper struct {
	fetcher fetcher.Fetcher
}

// NewLocalScraper creates a LocalScraper on top of f.
func NewLocalScraper(f fetcher.Fetcher) *LocalScraper {
	return &LocalScraper{fetcher: f}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL and extracts its text by content type.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	doc, err := l.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}

	page := &Page{URL: doc.URL, Source: l.Name()}
	switch {
	case doc.IsPDF():
		page.Text, err = pdfText(doc.Body)
		if err != nil {
			return nil, eris.Wrap(err, "local_http: pdf")
		}
	case doc.IsHTML():
		if blocked, blockType := DetectBlock(doc.Body); blocked {
			return nil, eris.Errorf("local_http: blocked (%s)", blockType)
		}
		page.Title, page.Text, err = htmlText(doc.Body, doc.URL)
		if err != nil {
			return nil, eris.Wrap(err, "local_http: html")
		}
	case strings.HasPrefix(doc.MediaType(), "text/"):
		page.Text = cleanLines(string(doc.Body))
	default:
		return nil, eris.Errorf("local_http: unsupported content type %q", doc.ContentType)
	}

	if utf8.RuneCountInString(page.Text) < minPageChars {
		return nil, eris.New("local_http: empty page")
	}
	return page, nil
}
