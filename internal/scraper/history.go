package scraper

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// History returns the caller's most recent records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]RecordSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, InvalidInput("user is required")
	}
	summaries, err := s.deps.Records.ListByUser(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, Internal("failed to load history", err)
	}
	if summaries == nil {
		summaries = []RecordSummary{}
	}
	return summaries, nil
}

// Get returns one record owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*ScrapedRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, InvalidInput("user is required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, InvalidInput("id is required")
	}
	record, err := s.deps.Records.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, NotFound("scraped data not found")
		}
		return nil, Internal("failed to load record", err)
	}
	return &record, nil
}

// DeleteAll removes every record owned by userID.
func (s *Service) DeleteAll(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, InvalidInput("user is required")
	}
	n, err := s.deps.Records.DeleteAllByUser(ctx, userID)
	if err != nil {
		return DeleteResult{}, Internal("failed to clear history", err)
	}
	s.deps.Logger.Info("history cleared", zap.String("user_id", userID), zap.Int64("deleted", n))
	return DeleteResult{DeletedCount: n}, nil
}

// DeleteByIDs removes the listed records that userID owns. Unknown and foreign ids are skipped.
func (s *Service) DeleteByIDs(ctx context.Context, userID string, ids []string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, InvalidInput("user is required")
	}
	cleaned := dedupeIDs(ids)
	if len(cleaned) == 0 {
		return DeleteResult{}, InvalidInput("at least one id is required")
	}
	n, err := s.deps.Records.DeleteByIDs(ctx, cleaned, userID)
	if err != nil {
		return DeleteResult{}, Internal("failed to delete records", err)
	}
	s.deps.Logger.Info("records deleted",
		zap.String("user_id", userID),
		zap.Int("requested", len(cleaned)),
		zap.Int64("deleted", n),
	)
	return DeleteResult{DeletedCount: n}, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
