package recipe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL produces the canonical form used as the scrape-job key.
// It lowercases the scheme and host, removes default ports, sorts query
// parameters, and drops fragments. The path is left untouched. Only absolute
// http and https URLs are accepted; anything else is rejected here so the
// pipeline never sees an unfetchable target.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("url host is empty")
	}
	u.Host = strings.ToLower(u.Host)

	// Remove default ports
	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	// Sort query parameters
	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Domain returns the lowercase hostname with any leading "www." removed.
// It keys the site-scraper registry and fills a recipe's SourceName.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Hostname returns the lowercase hostname with any port removed. Unlike
// Domain it keeps the "www." prefix, so blocklist patterns match the host
// exactly as submitted.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
