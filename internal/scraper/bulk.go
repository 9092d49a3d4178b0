package scraper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pankajkandpal99/web-scrapper/internal/metrics"
)

// ScrapeMany scrapes every URL concurrently and returns one result per input, in input order.
// Only batch-level problems fail the call; per-URL failures land in the matching BulkResult.
func (s *Service) ScrapeMany(ctx context.Context, userID string, urls []string, opts *ScrapeOptions) ([]BulkResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, InvalidInput("user is required")
	}
	if len(urls) == 0 {
		return nil, InvalidInput("at least one URL is required")
	}
	if len(urls) > s.cfg.MaxBulk {
		return nil, InvalidInput(fmt.Sprintf("at most %d URLs are allowed per request", s.cfg.MaxBulk))
	}
	metrics.ObserveBulk(len(urls))

	results := make([]BulkResult, len(urls))
	var g errgroup.Group
	for i, raw := range urls {
		g.Go(func() error {
			results[i] = s.scrapeOne(ctx, userID, raw, opts)
			return nil
		})
	}
	// Items never return errors; the group is only used to join.
	_ = g.Wait()

	s.deps.Logger.Info("bulk scrape finished",
		zap.String("user_id", userID),
		zap.Int("total", len(urls)),
		zap.Int("succeeded", countSucceeded(results)),
	)
	return results, nil
}

func (s *Service) scrapeOne(ctx context.Context, userID, raw string, opts *ScrapeOptions) (result BulkResult) {
	result.URL = raw
	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error("bulk item panicked", zap.String("url", raw), zap.Any("panic", r))
			result = BulkResult{URL: raw, Error: "internal error while scraping"}
		}
	}()

	record, err := s.Scrape(ctx, userID, ScrapeRequest{URL: raw, Options: opts})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Data = record
	result.URL = record.URL
	return result
}

func countSucceeded(results []BulkResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
