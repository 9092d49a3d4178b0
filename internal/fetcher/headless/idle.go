package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// idleTracker counts in-flight requests and remembers when the count last fell to the threshold.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	// calmSince is when the count last dropped to or below the threshold; zero while busy.
	calmSince time.Time
	threshold int
	now       func() time.Time
}

func newIdleTracker(start time.Time) *idleTracker {
	return &idleTracker{
		inflight:  make(map[network.RequestID]struct{}),
		calmSince: start,
		threshold: defaultIdleInflight,
		now:       time.Now,
	}
}

func (t *idleTracker) observe(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	if len(t.inflight) > t.threshold {
		t.calmSince = time.Time{}
	}
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	if len(t.inflight) <= t.threshold && t.calmSince.IsZero() {
		t.calmSince = t.now()
	}
}

// idleFor reports whether the page has stayed at or below the threshold for quiet.
func (t *idleTracker) idleFor(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calmSince.IsZero() {
		return false
	}
	return t.now().Sub(t.calmSince) >= quiet
}

func (t *idleTracker) setThreshold(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threshold = n
	if len(t.inflight) <= n && t.calmSince.IsZero() {
		t.calmSince = t.now()
	}
}

// waitNetworkIdle blocks until no more than maxInflight requests have been pending for quiet.
func waitNetworkIdle(tracker *idleTracker, maxInflight int, quiet time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tracker.setThreshold(maxInflight)
		ticker := time.NewTicker(idlePollInterval)
		defer ticker.Stop()
		for {
			if tracker.idleFor(quiet) {
				return nil
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("wait for network idle: %w", ctx.Err())
			case <-ticker.C:
			}
		}
	})
}
