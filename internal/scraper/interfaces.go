package scraper

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Fetcher obtains raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Extractor turns HTML into structured fields. Implementations must not fail.
type Extractor interface {
	Extract(html string, sourceURL string) ExtractedPage
}

// RecordStore persists scraped records. Every read and delete is scoped to userID.
type RecordStore interface {
	Insert(ctx context.Context, record ScrapedRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]RecordSummary, error)
	GetByID(ctx context.Context, id, userID string) (ScrapedRecord, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string, userID string) (int64, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Quota admits or rejects a scrape for a caller.
type Quota interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// TechDetector reports technologies fingerprinted from a response.
type TechDetector interface {
	Detect(headers http.Header, body []byte) map[string][]string
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
