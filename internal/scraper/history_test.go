package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistory_ScopedToCaller(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mine, err := h.svc.Scrape(ctx, "u1", ScrapeRequest{URL: "https://a.example"})
	require.NoError(t, err)
	theirs, err := h.svc.Scrape(ctx, "u2", ScrapeRequest{URL: "https://b.example"})
	require.NoError(t, err)

	history, err := h.svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, mine.ID, history[0].ID)

	_, err = h.svc.Get(ctx, "u1", theirs.ID)
	require.Equal(t, KindNotFound, KindOf(err))

	empty, err := h.svc.History(ctx, "nobody")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestHistory_LimitApplies(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{HistoryLimit: 2}, nil)
	ctx := context.Background()
	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := h.svc.Scrape(ctx, "u1", ScrapeRequest{URL: u})
		require.NoError(t, err)
	}
	history, err := h.svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "https://c.example", history[0].URL)
}

func TestGet_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	_, err := h.svc.Get(context.Background(), "u1", "")
	require.Equal(t, KindInvalidInput, KindOf(err))

	_, err = h.svc.Get(context.Background(), "u1", "missing")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteAll_OnlyCallerRecords(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	for _, u := range []string{"https://a.example", "https://b.example"} {
		_, err := h.svc.Scrape(ctx, "u1", ScrapeRequest{URL: u})
		require.NoError(t, err)
	}
	_, err := h.svc.Scrape(ctx, "u2", ScrapeRequest{URL: "https://c.example"})
	require.NoError(t, err)

	res, err := h.svc.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), res.DeletedCount)

	res, err = h.svc.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, res.DeletedCount)
	require.Equal(t, 1, h.records.count())
}

func TestDeleteByIDs_SkipsForeignAndUnknown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mine, err := h.svc.Scrape(ctx, "u1", ScrapeRequest{URL: "https://a.example"})
	require.NoError(t, err)
	theirs, err := h.svc.Scrape(ctx, "u2", ScrapeRequest{URL: "https://b.example"})
	require.NoError(t, err)

	res, err := h.svc.DeleteByIDs(ctx, "u1", []string{mine.ID, mine.ID, " ", theirs.ID, "unknown"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.DeletedCount)

	_, err = h.svc.Get(ctx, "u2", theirs.ID)
	require.NoError(t, err)

	_, err = h.svc.DeleteByIDs(ctx, "u1", nil)
	require.Equal(t, KindInvalidInput, KindOf(err))
	_, err = h.svc.DeleteByIDs(ctx, "u1", []string{"", "  "})
	require.Equal(t, KindInvalidInput, KindOf(err))
}

func TestDedupeIDs(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, dedupeIDs([]string{"a", " b ", "a", ""}))
	require.Empty(t, dedupeIDs(nil))
}
