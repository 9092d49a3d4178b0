package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]FetchResult
	errs      map[string]error
	calls     []string
	panicOn   string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if url == f.panicOn {
		panic("boom")
	}
	if err, ok := f.errs[url]; ok {
		return FetchResult{}, err
	}
	if res, ok := f.responses[url]; ok {
		return res, nil
	}
	return FetchResult{
		URL:        url,
		FinalURL:   url,
		HTML:       "<html><head><title>ok</title></head><body>ok</body></html>",
		StatusCode: http.StatusOK,
		Elapsed:    5 * time.Millisecond,
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(html string, sourceURL string) ExtractedPage {
	return ExtractedPage{
		Title:       "Title of " + sourceURL,
		Description: "desc",
		Content:     html,
		Links:       []Link{{Text: "home", Href: "/"}},
		CompanyInfo: &CompanyInfo{Name: "Acme", Website: sourceURL},
	}
}

type fakeRecordStore struct {
	mu        sync.Mutex
	records   map[string]ScrapedRecord
	insertErr error
	listErr   error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]ScrapedRecord)}
}

func (s *fakeRecordStore) Insert(_ context.Context, record ScrapedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.records[record.ID] = record
	return nil
}

func (s *fakeRecordStore) ListByUser(_ context.Context, userID string, limit int) ([]RecordSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []RecordSummary
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeRecordStore) GetByID(_ context.Context, id, userID string) (ScrapedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return ScrapedRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *fakeRecordStore) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.records {
		if rec.UserID == userID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeRecordStore) DeleteByIDs(_ context.Context, ids []string, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if rec, ok := s.records[id]; ok && rec.UserID == userID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeRecordStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakeBlobStore struct {
	mu       sync.Mutex
	lastPath string
	objects  map[string][]byte
	err      error
}

func (b *fakeBlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[path] = body
	b.lastPath = path
	return "memory://" + path, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, payload)
	return "msg-1", nil
}

type fakeQuota struct {
	allowed bool
	err     error
}

func (q fakeQuota) Allow(context.Context, string) (bool, error) {
	return q.allowed, q.err
}

type fakeHasher struct{ hash string }

func (h fakeHasher) Hash([]byte) (string, error) { return h.hash, nil }

type fakeTech struct{}

func (fakeTech) Detect(http.Header, []byte) map[string][]string {
	return map[string][]string{"Nginx": {"Web servers"}}
}

// fixedClock always returns the same instant, forcing the service to bump stamps.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("rec-%d", g.n), nil
}

var errBoom = errors.New("boom")
