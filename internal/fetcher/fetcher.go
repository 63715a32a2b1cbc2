// Package fetcher retrieves raw HTML pages plus response headers for the
// website-facing enrichment stages.
package fetcher

import (
	"context"
	"net/http"
	"strings"
)

// Page is one fetched document: the HTML body and the response headers the
// fingerprinting heuristics inspect (server, x-powered-by, cf-ray, ...).
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Fetcher fetches a single page. Implementations classify failures through
// the resilience taxonomy so callers can retry or degrade.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// NormalizeURL ensures a website identifier is an absolute URL, defaulting
// to https when no scheme is present.
func NormalizeURL(website string) string {
	w := strings.TrimSpace(website)
	if w == "" {
		return w
	}
	if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
		return "https://" + w
	}
	return w
}
