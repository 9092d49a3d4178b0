package scraper

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScrapeMany_PreservesOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	h.fetcher.errs = map[string]error{
		"https://down.example": &FetchError{Reason: ReasonDNSFailure, URL: "https://down.example", Err: errBoom},
	}

	urls := []string{"https://a.example", "not a url", "https://down.example", "https://b.example"}
	results, err := h.svc.ScrapeMany(context.Background(), "u1", urls, nil)
	require.NoError(t, err)
	require.Len(t, results, len(urls))

	require.True(t, results[0].Success)
	require.Equal(t, "https://a.example", results[0].Data.URL)

	require.False(t, results[1].Success)
	require.Equal(t, "not a url", results[1].URL)
	require.NotEmpty(t, results[1].Error)

	require.False(t, results[2].Success)
	require.Equal(t, "https://down.example", results[2].URL)

	require.True(t, results[3].Success)
	require.Equal(t, "https://b.example", results[3].URL)

	require.Equal(t, 2, h.records.count())
}

func TestScrapeMany_RejectsBatchSize(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)

	_, err := h.svc.ScrapeMany(context.Background(), "u1", nil, nil)
	require.Equal(t, KindInvalidInput, KindOf(err))

	urls := make([]string, DefaultMaxBulk+1)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example", i)
	}
	_, err = h.svc.ScrapeMany(context.Background(), "u1", urls, nil)
	require.Equal(t, KindInvalidInput, KindOf(err))
	require.Zero(t, h.fetcher.callCount())
}

func TestScrapeMany_RequiresUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	_, err := h.svc.ScrapeMany(context.Background(), " ", []string{"https://a.example"}, nil)
	require.Equal(t, KindInvalidInput, KindOf(err))
}

func TestScrapeMany_RecoversPanickingItem(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	h.fetcher.panicOn = "https://panic.example"

	results, err := h.svc.ScrapeMany(context.Background(), "u1", []string{"https://panic.example", "https://ok.example"}, nil)
	require.NoError(t, err)
	require.False(t, results[0].Success)
	require.Equal(t, "https://panic.example", results[0].URL)
	require.True(t, results[1].Success)
}
