package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/config"
	"github.com/sells-group/market-insights/internal/fetcher"
	"github.com/sells-group/market-insights/internal/llm"
	"github.com/sells-group/market-insights/internal/pipeline"
	"github.com/sells-group/market-insights/internal/scrape"
	"github.com/sells-group/market-insights/internal/search"
	anthropicpkg "github.com/sells-group/market-insights/pkg/anthropic"
	"github.com/sells-group/market-insights/pkg/firecrawl"
	"github.com/sells-group/market-insights/pkg/jina"
	"github.com/sells-group/market-insights/pkg/perplexity"
	"github.com/sells-group/market-insights/pkg/serpapi"
)

// clients holds the API clients built from configuration.
type clients struct {
	Anthropic  anthropicpkg.Client
	Jina       jina.Client
	Firecrawl  firecrawl.Client
	Perplexity perplexity.Client
	SerpAPI    serpapi.Client
}

func initClients(c *config.Config) *clients {
	var anthropicOpts []anthropicpkg.Option
	if c.Anthropic.BaseURL != "" {
		anthropicOpts = append(anthropicOpts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
	}
	if c.Anthropic.MaxRetries > 0 {
		anthropicOpts = append(anthropicOpts, anthropicpkg.WithMaxRetries(c.Anthropic.MaxRetries))
	}

	jinaOpts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
	if c.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}

	return &clients{
		Anthropic:  anthropicpkg.NewClient(c.Anthropic.Key, anthropicOpts...),
		Jina:       jina.NewClient(c.Jina.Key, jinaOpts...),
		Firecrawl:  firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL)),
		Perplexity: perplexity.NewClient(c.Perplexity.Key, perplexity.WithBaseURL(c.Perplexity.BaseURL), perplexity.WithModel(c.Perplexity.Model)),
		SerpAPI:    serpapi.NewClient(c.SerpAPI.Key, serpapi.WithBaseURL(c.SerpAPI.BaseURL)),
	}
}

// initGenerator picks the free-text model used for market inference and
// provocations.
func initGenerator(c *config.Config, cl *clients) (llm.TextGenerator, string, error) {
	switch c.LLM.Provider {
	case "anthropic":
		return llm.NewAnthropic(cl.Anthropic, c.Anthropic.Model, c.Anthropic.MaxTokens), c.Anthropic.Model, nil
	case "perplexity":
		return llm.NewPerplexity(cl.Perplexity), c.Perplexity.Model, nil
	default:
		return nil, "", eris.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
}

func initSearch(c *config.Config, cl *clients) (search.Provider, error) {
	opts := search.Options{Retries: c.Search.Retries, Timeout: c.Search.Timeout()}
	switch c.Search.Provider {
	case "serpapi":
		return search.NewSerpAPI(cl.SerpAPI, c.Search.NumResults, opts), nil
	case "jina":
		return search.NewJina(cl.Jina, opts), nil
	default:
		return nil, eris.Errorf("unsupported search provider: %s", c.Search.Provider)
	}
}

// initScrapeChain builds the page source chain: direct fetch first, then
// Jina Reader and Firecrawl when their keys are set.
func initScrapeChain(c *config.Config, cl *clients) *scrape.Chain {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.Scrape.UserAgent,
		Timeout:      time.Duration(c.Scrape.TimeoutSecs) * time.Second,
		RateLimit:    float64(c.Scrape.RateLimit),
		MaxBodyBytes: c.Scrape.MaxBodyBytes,
	})

	scrapers := []scrape.Scraper{scrape.NewLocalScraper(f)}
	if c.Jina.Key != "" {
		scrapers = append(scrapers, scrape.NewJinaAdapter(cl.Jina))
	}
	if c.Firecrawl.Key != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(cl.Firecrawl))
	}

	chain := scrape.NewChain(scrape.NewPathMatcher(c.Scrape.ExcludePaths), scrapers...)
	zap.L().Debug("scrape chain ready", zap.Strings("scrapers", chain.Names()))
	return chain
}

// initEngine returns the concurrent engine when enabled, else the sequential
// one.
func initEngine(c *config.Config, ex pipeline.ContentExtractor) pipeline.Engine {
	if c.Extract.Concurrent {
		return pipeline.NewConcurrentEngine(ex, c.Extract.Workers, c.Extract.CallTimeout())
	}
	return pipeline.NewSequentialEngine(ex, c.Extract.CallTimeout())
}

// initPipeline wires every stage of the insight pipeline from configuration.
func initPipeline(c *config.Config) (*pipeline.Pipeline, error) {
	cl := initClients(c)

	gen, modelName, err := initGenerator(c, cl)
	if err != nil {
		return nil, err
	}
	searcher, err := initSearch(c, cl)
	if err != nil {
		return nil, err
	}

	extractor := scrape.NewExtractor(initScrapeChain(c, cl), cl.Anthropic, scrape.ExtractorOptions{
		Model:           c.Anthropic.Model,
		MaxTokens:       c.Anthropic.MaxTokens,
		CacheTTL:        c.Anthropic.CacheTTL,
		MaxContentChars: c.Scrape.MaxContentChars,
	})

	collector := pipeline.NewCollector(pipeline.NewPromptBuilder(gen, modelName), searcher)
	return pipeline.New(collector, initEngine(c, extractor), c.Extract.MaxCandidates), nil
}
