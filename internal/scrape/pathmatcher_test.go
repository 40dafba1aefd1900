package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_Defaults(t *testing.T) {
	m := NewPathMatcher(nil)
	assert.Equal(t, defaultExcludePatterns, m.Patterns())

	assert.True(t, m.IsExcluded("https://example.com/files/data.xlsx"))
	assert.True(t, m.IsExcluded("https://example.com/deep/a/b/Archive.ZIP"))
	assert.True(t, m.IsExcluded("https://example.com/img/chart.png?w=200"))
	assert.False(t, m.IsExcluded("https://example.com/reports/market.pdf"))
	assert.False(t, m.IsExcluded("https://example.com/news/plant-based-growth"))
}

func TestPathMatcher_DirectoryPattern(t *testing.T) {
	m := NewPathMatcher([]string{"/login/*"})
	assert.True(t, m.IsExcluded("https://example.com/login"))
	assert.True(t, m.IsExcluded("https://example.com/login/sso/callback"))
	assert.False(t, m.IsExcluded("https://example.com/loginhelp"))
}

func TestPathMatcher_GlobPattern(t *testing.T) {
	m := NewPathMatcher([]string{"/press/*.html"})
	assert.True(t, m.IsExcluded("https://example.com/press/release.html"))
	assert.False(t, m.IsExcluded("https://example.com/press/2024/release.html"))
}

func TestPathMatcher_NilAndInvalid(t *testing.T) {
	var m *PathMatcher
	assert.False(t, m.IsExcluded("https://example.com/a.zip"))

	assert.True(t, NewPathMatcher(nil).IsExcluded("http://[::1"))
}
