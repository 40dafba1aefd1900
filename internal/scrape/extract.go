package scrape

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/pkg/anthropic"
)

// ErrContentTooLarge is returned when page text exceeds the extraction limit.
var ErrContentTooLarge = eris.New("scrape: content too large for extraction")

const extractSystemPrompt = `You extract market figures from web pages for analysts.
Answer with one JSON object and nothing else.
The object has exactly one top-level key naming the requested analysis. Its value is an object that maps each requested item to a string.
Quote figures as they appear in the content, with units and years.
When the content does not state an item, use "NA" for it.`

// PageSource returns the text of a URL.
type PageSource interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// ExtractorOptions configures the language model step.
type ExtractorOptions struct {
	Model           string
	MaxTokens       int64
	CacheTTL        string
	MaxContentChars int
}

// Extractor reads a page and asks the model to fill the fields named in an
// instruction, returning the parsed JSON object.
type Extractor struct {
	pages  PageSource
	client anthropic.Client
	opts   ExtractorOptions
}

// NewExtractor creates an Extractor.
func NewExtractor(pages PageSource, client anthropic.Client, opts ExtractorOptions) *Extractor {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = 400_000
	}
	if opts.CacheTTL == "" {
		opts.CacheTTL = "5m"
	}
	return &Extractor{pages: pages, client: client, opts: opts}
}

// Extract scrapes targetURL and structures its content per instruction.
// Rejected credentials and an unavailable API (5xx, overloaded, or no
// response while ctx is live) come back as *model.UpstreamError. Every
// other failure concerns this URL only.
func (e *Extractor) Extract(ctx context.Context, instruction, targetURL string) (*model.Result, error) {
	page, err := e.pages.Scrape(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(page.Text); n > e.opts.MaxContentChars {
		return nil, eris.Wrapf(ErrContentTooLarge, "%s has %d chars (limit %d)", targetURL, n, e.opts.MaxContentChars)
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(extractSystemPrompt, e.opts.CacheTTL),
		Messages:    []anthropic.Message{{Role: "user", Content: buildUserMessage(instruction, page)}},
		Temperature: &temp,
	})
	if err != nil {
		if anthropic.IsAuthError(err) || (ctx.Err() == nil && anthropic.IsOutage(err)) {
			return nil, model.NewUpstreamError("anthropic", err)
		}
		return nil, eris.Wrap(err, "scrape: extract")
	}
	resp.Usage.LogCost(e.opts.Model, "extract")

	result, err := model.ParseResult([]byte(cleanJSON(resp.Text())))
	if err != nil {
		zap.L().Debug("scrape: unparseable model output",
			zap.String("url", targetURL),
			zap.String("stop_reason", resp.StopReason),
			zap.Bool("truncated", resp.Truncated()),
		)
		return nil, eris.Wrap(err, "scrape: parse model output")
	}
	return result, nil
}

func buildUserMessage(instruction string, page *Page) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(dedent(instruction)))
	b.WriteString("\n\nSource: ")
	b.WriteString(page.URL)
	if page.Title != "" {
		b.WriteString("\nTitle: ")
		b.WriteString(page.Title)
	}
	b.WriteString("\n\nContent:\n")
	b.WriteString(page.Text)
	return b.String()
}

// dedent trims leading whitespace from every line.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
