package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/metrics"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxBulk      = 20
	DefaultHistoryLimit = 100

	archiveContentType = "text/html; charset=utf-8"
	completedEventType = "scrape.completed"
)

// Config controls Service behavior.
type Config struct {
	// MaxBulk caps the number of URLs accepted by ScrapeMany.
	MaxBulk int
	// HistoryLimit caps the number of summaries returned by History.
	HistoryLimit int
	// ArchiveHTML stores the raw HTML through the BlobStore when set.
	ArchiveHTML   bool
	ArchivePrefix string
	// DetectTechnologies fingerprints the response when a TechDetector is wired.
	DetectTechnologies bool
	// EventTopic receives a completion event per stored record. Empty disables publishing.
	EventTopic string
}

// Dependencies groups the collaborators a Service needs.
// Fetcher, Extractor and Records are required; the rest are optional.
type Dependencies struct {
	Fetcher   Fetcher
	Extractor Extractor
	Records   RecordStore
	Blobs     BlobStore
	Publisher Publisher
	Quota     Quota
	Tech      TechDetector
	Hasher    Hasher
	Clock     Clock
	IDs       IDGenerator
	Logger    *zap.Logger
}

// Service orchestrates fetch, extraction and persistence for one caller at a time.
type Service struct {
	cfg  Config
	deps Dependencies

	stampMu   sync.Mutex
	lastStamp time.Time
}

// CompletedEvent is published after a record is stored.
type CompletedEvent struct {
	Type        string    `json:"type"`
	RecordID    string    `json:"recordId"`
	UserID      string    `json:"userId"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"statusCode"`
	UsedBrowser bool      `json:"usedBrowser"`
	ContentHash string    `json:"contentHash,omitempty"`
	ArchiveURI  string    `json:"archiveUri,omitempty"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}

// PartitionKey keeps one caller's events ordered on keyed transports.
func (e CompletedEvent) PartitionKey() string { return e.UserID }

// New validates deps and constructs a Service.
func New(cfg Config, deps Dependencies) (*Service, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("scraper: fetcher is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("scraper: extractor is required")
	}
	if deps.Records == nil {
		return nil, errors.New("scraper: record store is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("scraper: id generator is required")
	}
	if deps.Clock == nil {
		deps.Clock = utcClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ArchiveHTML && (deps.Blobs == nil || deps.Hasher == nil) {
		return nil, errors.New("scraper: archiving requires a blob store and a hasher")
	}
	if cfg.MaxBulk <= 0 {
		cfg.MaxBulk = DefaultMaxBulk
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Service{cfg: cfg, deps: deps}, nil
}

// Scrape fetches req.URL, extracts its content and stores a record owned by userID.
func (s *Service) Scrape(ctx context.Context, userID string, req ScrapeRequest) (*ScrapedRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, InvalidInput("user is required")
	}
	if req.Options != nil && req.Options.Depth < 0 {
		return nil, InvalidInput("depth must not be negative")
	}
	target, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, newError(KindInvalidInput, "invalid URL", err)
	}

	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	logger := s.deps.Logger.With(zap.String("user_id", userID), zap.String("url", target))
	logger.Debug("scrape started")

	res, err := s.deps.Fetcher.Fetch(ctx, target)
	if err != nil {
		metrics.ObserveScrape(target, "fetch_error", 0)
		logger.Warn("fetch failed", zap.Error(err))
		return nil, fromFetchError(err)
	}
	metrics.ObserveFetchMode(res.UsedBrowser)

	page := s.deps.Extractor.Extract(res.HTML, target)
	record, err := s.buildRecord(userID, target, res, page, req)
	if err != nil {
		return nil, err
	}

	if s.cfg.ArchiveHTML {
		if err := s.archive(ctx, &record, res.HTML); err != nil {
			metrics.ObserveScrape(target, "archive_error", len(res.HTML))
			logger.Error("archive html failed", zap.Error(err))
			return nil, Internal("failed to archive page", err)
		}
	}

	if s.cfg.DetectTechnologies && s.deps.Tech != nil {
		record.Technologies = s.deps.Tech.Detect(res.Headers, []byte(res.HTML))
	}

	if err := s.deps.Records.Insert(ctx, record); err != nil {
		metrics.ObserveScrape(target, "store_error", len(res.HTML))
		logger.Error("insert record failed", zap.Error(err))
		return nil, Internal("failed to store scrape result", err)
	}
	metrics.ObserveScrape(target, "success", len(res.HTML))

	s.publishCompleted(ctx, record, logger)

	logger.Info("scrape completed",
		zap.String("record_id", record.ID),
		zap.Int("status", record.Metadata.StatusCode),
		zap.Bool("used_browser", record.Metadata.UsedBrowser),
		zap.Int64("response_ms", record.Metadata.ResponseTime),
	)
	return &record, nil
}

func (s *Service) checkQuota(ctx context.Context, userID string) error {
	if s.deps.Quota == nil {
		return nil
	}
	allowed, err := s.deps.Quota.Allow(ctx, userID)
	if err != nil {
		s.deps.Logger.Warn("quota check failed; allowing scrape", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if !allowed {
		metrics.ObserveQuotaRejection()
		return newError(KindQuotaExceeded, "scrape quota exceeded, try again later", nil)
	}
	return nil
}

func (s *Service) buildRecord(
	userID, target string,
	res FetchResult,
	page ExtractedPage,
	req ScrapeRequest,
) (ScrapedRecord, error) {
	id, err := s.deps.IDs.NewID()
	if err != nil {
		return ScrapedRecord{}, Internal("failed to allocate record id", err)
	}
	stamp := s.nextStamp()

	record := ScrapedRecord{
		ID:       id,
		URL:      target,
		Title:    page.Title,
		Content:  page.Content,
		Headings: page.Headings,
		Links:    nonNilLinks(page.Links),
		Images:   nonNilImages(page.Images),
		Metadata: Metadata{
			ScrapedAt:     stamp,
			ResponseTime:  res.ElapsedMillis(),
			StatusCode:    res.StatusCode,
			ContentLength: len(res.HTML),
			UsedBrowser:   res.UsedBrowser,
		},
		UserID:    userID,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	if req.metadataWanted() {
		record.Description = page.Description
	} else {
		record.Title = ""
	}
	if req.companyInfoWanted() {
		record.CompanyInfo = page.CompanyInfo
	}
	return record, nil
}

// nextStamp returns the clock reading, bumped so successive records never tie.
func (s *Service) nextStamp() time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	now := s.deps.Clock.Now()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

func (s *Service) archive(ctx context.Context, record *ScrapedRecord, html string) error {
	body := []byte(html)
	digest, err := s.deps.Hasher.Hash(body)
	if err != nil {
		return fmt.Errorf("hash html: %w", err)
	}
	uri, err := s.deps.Blobs.PutObject(ctx, s.archivePath(record.UserID, digest), archiveContentType, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	record.Metadata.ContentHash = digest
	record.Metadata.ArchiveURI = uri
	return nil
}

func (s *Service) archivePath(userID, digest string) string {
	prefix := strings.Trim(s.cfg.ArchivePrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", userID, digest)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, userID, digest)
}

func (s *Service) publishCompleted(ctx context.Context, record ScrapedRecord, logger *zap.Logger) {
	if s.cfg.EventTopic == "" || s.deps.Publisher == nil {
		return
	}
	event := CompletedEvent{
		Type:        completedEventType,
		RecordID:    record.ID,
		UserID:      record.UserID,
		URL:         record.URL,
		StatusCode:  record.Metadata.StatusCode,
		UsedBrowser: record.Metadata.UsedBrowser,
		ContentHash: record.Metadata.ContentHash,
		ArchiveURI:  record.Metadata.ArchiveURI,
		ScrapedAt:   record.Metadata.ScrapedAt,
	}
	msgID, err := s.deps.Publisher.Publish(ctx, s.cfg.EventTopic, event)
	if err != nil {
		logger.Warn("publish completion event failed", zap.String("record_id", record.ID), zap.Error(err))
		return
	}
	logger.Debug("published completion event", zap.String("record_id", record.ID), zap.String("message_id", msgID))
}

func nonNilLinks(in []Link) []Link {
	if in == nil {
		return []Link{}
	}
	return in
}

func nonNilImages(in []Image) []Image {
	if in == nil {
		return []Image{}
	}
	return in
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
