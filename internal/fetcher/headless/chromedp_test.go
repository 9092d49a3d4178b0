package headless

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

func TestNewChromedpDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}
	if _, err := NewChromedp(Config{IdleInflight: -1}); err == nil {
		t.Fatal("expected error for negative idle inflight")
	}
	fetcher, err := NewChromedp(Config{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cap(fetcher.limiter) != 2 {
		t.Fatalf("expected limiter capacity 2, got %d", cap(fetcher.limiter))
	}
	if fetcher.cfg.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", fetcher.cfg.Timeout)
	}
	if fetcher.cfg.ViewportWidth != 1366 || fetcher.cfg.ViewportHeight != 768 {
		t.Fatalf("expected 1366x768 viewport, got %dx%d", fetcher.cfg.ViewportWidth, fetcher.cfg.ViewportHeight)
	}
	if fetcher.cfg.IdleInflight != 2 || fetcher.cfg.IdleQuiet != 500*time.Millisecond {
		t.Fatalf("unexpected idle defaults: %+v", fetcher.cfg)
	}
}

func TestAllocatorOptions(t *testing.T) {
	t.Parallel()

	base, err := NewChromedp(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withSandboxOff, err := NewChromedp(Config{NoSandbox: true, ExecPath: "/usr/bin/chromium"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(withSandboxOff.allocatorOptions()), len(base.allocatorOptions())+3; got != want {
		t.Fatalf("expected %d options, got %d", want, got)
	}
}

func TestFetchCanceledWhileWaitingForSlot(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{MaxParallel: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher.limiter <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fetcher.Fetch(ctx, "https://example.com")
	var fe *scraper.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *scraper.FetchError, got %v", err)
	}
	// The site was never contacted, so this must not read as a site timeout.
	if fe.Reason != scraper.ReasonUnknown {
		t.Fatalf("expected reason %s, got %s", scraper.ReasonUnknown, fe.Reason)
	}
}

func TestSlotWaitCountsAgainstFetchTimeout(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{MaxParallel: 1, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher.limiter <- struct{}{}

	start := time.Now()
	if _, err := fetcher.Fetch(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected error when no slot frees up")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("slot wait outlived the fetch timeout: %v", elapsed)
	}
}

func TestDefaultConfigDoesNotSerializeBrowsers(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.limiter != nil {
		t.Fatalf("expected no limiter by default, got capacity %d", cap(fetcher.limiter))
	}

	// A full bulk batch acquires at once without anyone releasing.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 20; i++ {
		if err := fetcher.acquire(ctx); err != nil {
			t.Fatalf("acquire %d blocked: %v", i, err)
		}
	}
}

func TestReleaseFreesAcquiredSlot(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{MaxParallel: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if err := fetcher.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	fetcher.release()
	if err := fetcher.acquire(ctx); err != nil {
		t.Fatalf("second acquire after release: %v", err)
	}
	if len(fetcher.limiter) != 1 {
		t.Fatalf("expected one held slot, got %d", len(fetcher.limiter))
	}
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  404,
			URL:     "https://example.com/rendered",
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 200, URL: "https://cdn.example.com/app.js"},
	})
	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	if status != 404 || headers.Get("X-Request-ID") != "abc" || url != "https://example.com/rendered" {
		t.Fatalf("unexpected snapshot values: status=%d headers=%v url=%s", status, headers, url)
	}

	meta = newResponseMeta()
	status, _, url = meta.snapshotWithFallbacks("https://req", "https://final")
	if status != http.StatusOK || url != "https://final" {
		t.Fatalf("expected fallback values, got status=%d url=%s", status, url)
	}
}

func TestIdleTracker(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	tracker := newIdleTracker(now)
	tracker.now = func() time.Time { return now }

	if !tracker.idleFor(0) {
		t.Fatal("expected a fresh tracker to be idle")
	}

	for _, id := range []network.RequestID{"1", "2", "3"} {
		tracker.observe(&network.EventRequestWillBeSent{RequestID: id})
	}
	if tracker.idleFor(0) {
		t.Fatal("expected three in-flight requests to keep the page busy")
	}

	now = now.Add(time.Second)
	tracker.observe(&network.EventLoadingFinished{RequestID: "1"})
	if tracker.idleFor(500 * time.Millisecond) {
		t.Fatal("expected quiet period to start at the drop")
	}

	now = now.Add(600 * time.Millisecond)
	if !tracker.idleFor(500 * time.Millisecond) {
		t.Fatal("expected page idle after quiet period with two requests pending")
	}

	tracker.observe(&network.EventRequestWillBeSent{RequestID: "4"})
	if tracker.idleFor(0) {
		t.Fatal("expected new request to reset idleness")
	}
	tracker.observe(&network.EventLoadingFailed{RequestID: "4"})
	if !tracker.idleFor(0) {
		t.Fatal("expected failed request to count as finished")
	}
}

func TestWaitNetworkIdleHonorsContext(t *testing.T) {
	t.Parallel()

	tracker := newIdleTracker(time.Now())
	for _, id := range []network.RequestID{"a", "b", "c"} {
		tracker.observe(&network.EventRequestWillBeSent{RequestID: id})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := waitNetworkIdle(tracker, 2, 10*time.Millisecond).Do(ctx); err == nil {
		t.Fatal("expected context error while network stays busy")
	}
}
