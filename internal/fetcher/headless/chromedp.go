// Package headless renders pages in an isolated headless Chrome via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultViewportWidth  = 1366
	defaultViewportHeight = 768
	defaultIdleInflight   = 2
	defaultIdleQuiet      = 500 * time.Millisecond
	idlePollInterval      = 50 * time.Millisecond
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	// MaxParallel bounds concurrent browsers. Zero means unbounded.
	MaxParallel int
	UserAgent   string
	// Timeout bounds launch, navigation and capture together.
	Timeout        time.Duration
	ExecPath       string
	NoSandbox      bool
	ViewportWidth  int64
	ViewportHeight int64
	// IdleInflight and IdleQuiet define "network mostly idle".
	IdleInflight int
	IdleQuiet    time.Duration
}

// Fetcher implements scraper.Fetcher. Each Fetch launches and tears down its own browser.
type Fetcher struct {
	cfg     Config
	limiter chan struct{}
}

// NewChromedp creates a headless fetcher backed by chromedp.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, errors.New("max parallel must be >= 0")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = defaultViewportWidth, defaultViewportHeight
	}
	if cfg.IdleInflight < 0 {
		return nil, errors.New("idle inflight must be >= 0")
	}
	if cfg.IdleInflight == 0 {
		cfg.IdleInflight = defaultIdleInflight
	}
	if cfg.IdleQuiet <= 0 {
		cfg.IdleQuiet = defaultIdleQuiet
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &Fetcher{cfg: cfg, limiter: limiter}, nil
}

// Fetch navigates with a fresh headless browser and returns the rendered DOM.
// A page that loads with a non-2xx status is still returned with that status.
func (f *Fetcher) Fetch(ctx context.Context, url string) (scraper.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.acquire(ctx); err != nil {
		return scraper.FetchResult{}, &scraper.FetchError{Reason: scraper.ReasonUnknown, URL: url, Err: err}
	}
	defer f.release()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	meta := newResponseMeta()
	tracker := newIdleTracker(time.Now())
	chromedp.ListenTarget(browserCtx, func(ev any) {
		meta.captureEvent(ev)
		tracker.observe(ev)
	})

	start := time.Now()
	html, finalURL, err := f.runHeadless(browserCtx, url, tracker)
	if err != nil {
		return scraper.FetchResult{}, err
	}

	status, headers, responseURL := meta.snapshotWithFallbacks(url, finalURL)
	if headers == nil {
		headers = http.Header{}
	}

	return scraper.FetchResult{
		URL:         url,
		FinalURL:    responseURL,
		HTML:        html,
		StatusCode:  status,
		Headers:     headers,
		Elapsed:     time.Since(start),
		UsedBrowser: true,
	}, nil
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.UserAgent(f.cfg.UserAgent),
		chromedp.WindowSize(int(f.cfg.ViewportWidth), int(f.cfg.ViewportHeight)),
	)
	if f.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	return opts
}

func (f *Fetcher) runHeadless(ctx context.Context, url string, tracker *idleTracker) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.networkSetupAction(),
		chromedp.EmulateViewport(f.cfg.ViewportWidth, f.cfg.ViewportHeight),
		chromedp.Navigate(url),
		waitNetworkIdle(tracker, f.cfg.IdleInflight, f.cfg.IdleQuiet),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	<-f.limiter
}

type responseMeta struct {
	mu      sync.RWMutex
	status  int
	headers http.Header
	url     string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{
		headers: http.Header{},
	}
}

// capture records the last document response, which follows redirects to the final page.
func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range event.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.headers = headers
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshot() (int, http.Header, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.headers.Clone(), m.url
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, http.Header, string) {
	status, headers, url := m.snapshot()
	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}

	if status == 0 {
		status = http.StatusOK
	}
	return status, headers, url
}
