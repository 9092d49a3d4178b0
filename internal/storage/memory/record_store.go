// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

// RecordStore keeps scraped records in memory, indexed by owner.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]scraper.ScrapedRecord
	byUser  map[string]map[string]struct{}
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]scraper.ScrapedRecord),
		byUser:  make(map[string]map[string]struct{}),
	}
}

// Insert stores a new record.
func (s *RecordStore) Insert(_ context.Context, record scraper.ScrapedRecord) error {
	if record.ID == "" || record.UserID == "" {
		return errors.New("record id and user id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return errors.New("record already exists")
	}
	s.records[record.ID] = record
	ids, ok := s.byUser[record.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[record.UserID] = ids
	}
	ids[record.ID] = struct{}{}
	return nil
}

// ListByUser returns up to limit summaries, newest first.
func (s *RecordStore) ListByUser(_ context.Context, userID string, limit int) ([]scraper.RecordSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.RecordSummary, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		out = append(out, s.records[id].Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByID returns the record if userID owns it.
func (s *RecordStore) GetByID(_ context.Context, id, userID string) (scraper.ScrapedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok || record.UserID != userID {
		return scraper.ScrapedRecord{}, scraper.ErrRecordNotFound
	}
	return record, nil
}

// DeleteAllByUser removes every record owned by userID.
func (s *RecordStore) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byUser[userID]
	for id := range ids {
		delete(s.records, id)
	}
	delete(s.byUser, userID)
	return int64(len(ids)), nil
}

// DeleteByIDs removes the listed records owned by userID and reports how many went.
func (s *RecordStore) DeleteByIDs(_ context.Context, ids []string, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.byUser[userID]
	var deleted int64
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			continue
		}
		delete(owned, id)
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}
