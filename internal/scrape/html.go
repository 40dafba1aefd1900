package scrape

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

// minReadableChars is the shortest readability output accepted before
// falling back to paragraph extraction.
const minReadableChars = 200

// htmlText returns the main text of an HTML page and its title. It prefers
// the readability article and falls back to collecting block elements.
func htmlText(body []byte, pageURL string) (title, text string, err error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, rerr := readability.FromReader(bytes.NewReader(body), u)
	if rerr == nil {
		text = cleanLines(article.TextContent)
		if len(text) >= minReadableChars {
			return strings.TrimSpace(article.Title), text, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", eris.Wrap(err, "html: parse")
	}
	title = strings.TrimSpace(doc.Find("head title").First().Text())

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()
	var parts []string
	doc.Find("body").Find("p, h1, h2, h3, h4, li, td, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	fallback := strings.Join(parts, "\n")
	if len(fallback) > len(text) {
		text = fallback
	}
	return title, text, nil
}
