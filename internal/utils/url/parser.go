// Package urlutil validates user-supplied series URLs and resolves the
// relative hrefs that episode lists and viewer pages carry.
package urlutil

import (
	"fmt"
	"net/url"
)

// ValidateURL checks that a series URL is absolute http(s) with a host.
// Runs once per command on the positional argument, before any fetch.
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against the page it was
// scraped from. Unparseable input comes back unchanged; the fetch layer
// will surface the error with more context than a parse failure here.
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}
