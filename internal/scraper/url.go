package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	errEmptyURL    = errors.New("url is required")
	errNotAbsolute = errors.New("url must be absolute")
	errBadScheme   = errors.New("url must use http or https")
	errMissingHost = errors.New("url must include a host")
)

// ParseURL validates raw as an absolute http(s) URL without touching the network.
func ParseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errEmptyURL
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() {
		return nil, errNotAbsolute
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errBadScheme
	}
	if u.Hostname() == "" {
		return nil, errMissingHost
	}
	return u, nil
}

// ValidateURL returns a FetchError with ReasonInvalidURL when raw is unusable.
func ValidateURL(raw string) error {
	if _, err := ParseURL(raw); err != nil {
		return &FetchError{Reason: ReasonInvalidURL, URL: raw, Err: err}
	}
	return nil
}

// NormalizeURL lower-cases scheme and host and drops the fragment.
// The path, query and trailing slash are kept as given.
func NormalizeURL(raw string) (string, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// SiteOf returns the lower-cased hostname of raw, or "unknown".
func SiteOf(raw string) string {
	u, err := ParseURL(raw)
	if err != nil {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
