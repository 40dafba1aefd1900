package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip downloads no scraper can turn into text.
var defaultExcludePatterns = []string{
	"/*.zip",
	"/*.xls",
	"/*.xlsx",
	"/*.ppt",
	"/*.pptx",
	"/*.mp4",
	"/*.mp3",
	"/*.jpg",
	"/*.jpeg",
	"/*.png",
	"/*.gif",
}

// PathMatcher filters URLs based on glob-style path patterns.
// A pattern starting with "/*." matches the extension at any depth, and a
// pattern ending in "/*" matches everything below that directory.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns (e.g. "/login/*", "/*.zip").
// Falls back to default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{patterns: patterns}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether a URL matches any exclude pattern. Unparseable
// URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	if m == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	urlPath := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchPattern(strings.ToLower(pattern), urlPath) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, urlPath string) bool {
	if ext, ok := strings.CutPrefix(pattern, "/*."); ok && !strings.Contains(ext, "/") {
		return strings.HasSuffix(urlPath, "."+ext)
	}
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
