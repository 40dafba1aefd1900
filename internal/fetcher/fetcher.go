// Package fetcher downloads candidate pages and reads topic spreadsheets.
package fetcher

import (
	"bytes"
	"context"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Fetcher defines the interface for downloading remote pages.
type Fetcher interface {
	// Fetch downloads the URL and returns the response body with its
	// content type and final URL after redirects.
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Document is a downloaded page.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// MediaType returns the lower-cased media type without parameters.
func (d *Document) MediaType() string {
	if d.ContentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(d.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(d.ContentType, ";")[0]))
	}
	return mt
}

// IsPDF reports whether the document is a PDF, judged by media type, the
// URL path suffix or the file signature.
func (d *Document) IsPDF() bool {
	if d.MediaType() == "application/pdf" {
		return true
	}
	if bytes.HasPrefix(d.Body, []byte("%PDF-")) {
		return true
	}
	if u, err := url.Parse(d.URL); err == nil {
		return strings.EqualFold(path.Ext(u.Path), ".pdf")
	}
	return false
}

// IsHTML reports whether the document looks like an HTML page.
func (d *Document) IsHTML() bool {
	switch d.MediaType() {
	case "text/html", "application/xhtml+xml":
		return true
	case "":
		head := bytes.ToLower(d.Body[:min(len(d.Body), 512)])
		return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html"))
	}
	return false
}
