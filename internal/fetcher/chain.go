// Package fetcher combines the static and browser fetch paths behind scraper.Fetcher.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

// ShellDetector decides whether a successful static page should be re-rendered.
type ShellDetector interface {
	ShouldPromote(res scraper.FetchResult) bool
}

// Chain tries a static fetch first and falls back to a browser when it fails.
type Chain struct {
	static   scraper.Fetcher
	browser  scraper.Fetcher
	detector ShellDetector
	logger   *zap.Logger
}

// Option customizes a Chain.
type Option func(*Chain)

// WithBrowser enables the browser fallback. A nil fetcher leaves it disabled.
func WithBrowser(browser scraper.Fetcher) Option {
	return func(c *Chain) { c.browser = browser }
}

// WithShellDetector re-renders static pages the detector flags. Requires a browser.
func WithShellDetector(detector ShellDetector) Option {
	return func(c *Chain) { c.detector = detector }
}

// WithLogger sets the chain logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain builds a Chain around the static fetcher.
func NewChain(static scraper.Fetcher, opts ...Option) (*Chain, error) {
	if static == nil {
		return nil, errors.New("fetcher: static fetcher is required")
	}
	c := &Chain{static: static, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch implements scraper.Fetcher. Every failure is a *scraper.FetchError.
// A browser result's Elapsed covers the whole chain, including the failed static attempt.
func (c *Chain) Fetch(ctx context.Context, url string) (scraper.FetchResult, error) {
	if err := scraper.ValidateURL(url); err != nil {
		return scraper.FetchResult{}, err
	}
	start := time.Now()

	res, staticErr := c.static.Fetch(ctx, url)
	if staticErr == nil {
		if c.browser != nil && c.detector != nil && c.detector.ShouldPromote(res) {
			c.logger.Debug("static page looks client-rendered; promoting to browser", zap.String("url", url))
			rendered, err := c.browser.Fetch(ctx, url)
			if err == nil {
				rendered.Elapsed = time.Since(start)
				return rendered, nil
			}
			c.logger.Warn("browser promotion failed; keeping static result", zap.String("url", url), zap.Error(err))
		}
		return res, nil
	}

	if c.browser == nil || ctx.Err() != nil {
		return scraper.FetchResult{}, classify(url, staticErr)
	}

	c.logger.Debug("static fetch failed; falling back to browser", zap.String("url", url), zap.Error(staticErr))
	rendered, browserErr := c.browser.Fetch(ctx, url)
	if browserErr != nil {
		fe := classify(url, browserErr)
		fe.Err = fmt.Errorf("%w (static: %v)", fe.Err, staticErr)
		return scraper.FetchResult{}, fe
	}
	rendered.Elapsed = time.Since(start)
	return rendered, nil
}

var (
	dnsMarkers     = []string{"no such host", "err_name_not_resolved", "server misbehaving"}
	timeoutMarkers = []string{"deadline exceeded", "timeout", "err_timed_out"}
	launchMarkers  = []string{"exec:", "executable file not found", "chrome failed to start", "websocket url timeout"}
)

// classify maps err onto a FetchError reason. An existing FetchError keeps its reason.
func classify(url string, err error) *scraper.FetchError {
	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		return &scraper.FetchError{Reason: fe.Reason, URL: url, StatusCode: fe.StatusCode, Err: err}
	}
	msg := strings.ToLower(err.Error())
	reason := scraper.ReasonUnknown
	switch {
	case containsAny(msg, dnsMarkers):
		reason = scraper.ReasonDNSFailure
	case containsAny(msg, launchMarkers):
		reason = scraper.ReasonBrowserLaunchFailure
	case containsAny(msg, timeoutMarkers):
		reason = scraper.ReasonTimeout
	}
	return &scraper.FetchError{Reason: reason, URL: url, Err: err}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
