package scraper

import (
	"net/http"
	"time"
)

// ScrapeOptions tunes a single scrape request.
type ScrapeOptions struct {
	ExtractCompanyInfo *bool `json:"extractCompanyInfo,omitempty"`
	IncludeMetadata    *bool `json:"includeMetadata,omitempty"`
	Depth              int   `json:"depth,omitempty"`
}

// ScrapeRequest is the ephemeral input of a scrape.
type ScrapeRequest struct {
	URL     string         `json:"url"`
	Options *ScrapeOptions `json:"options,omitempty"`
}

func (r ScrapeRequest) companyInfoWanted() bool {
	if r.Options == nil || r.Options.ExtractCompanyInfo == nil {
		return true
	}
	return *r.Options.ExtractCompanyInfo
}

func (r ScrapeRequest) metadataWanted() bool {
	if r.Options == nil || r.Options.IncludeMetadata == nil {
		return true
	}
	return *r.Options.IncludeMetadata
}

// Headings holds ordered heading text per level.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
}

// Link is an anchor found on the page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Image is an img element found on the page.
type Image struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

// Contact groups contact details found in the markup.
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsEmpty reports whether no contact field is set.
func (c *Contact) IsEmpty() bool {
	return c == nil || (c.Email == "" && c.Phone == "" && c.Address == "")
}

// SocialMedia holds the first profile link found per network.
type SocialMedia struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// IsEmpty reports whether no network link is set.
func (s *SocialMedia) IsEmpty() bool {
	return s == nil || (s.LinkedIn == "" && s.Twitter == "" && s.Facebook == "" && s.Instagram == "")
}

// CompanyInfo is best-effort organisational metadata inferred from markup.
// Nil nested pointers mean the group resolved nothing.
type CompanyInfo struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Website     string       `json:"website,omitempty"`
	Location    string       `json:"location,omitempty"`
	Industry    string       `json:"industry,omitempty"`
	Employees   string       `json:"employees,omitempty"`
	Founded     string       `json:"founded,omitempty"`
	Contact     *Contact     `json:"contact,omitempty"`
	SocialMedia *SocialMedia `json:"socialMedia,omitempty"`
}

// ExtractedPage is the structured view of one HTML document.
type ExtractedPage struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Content     string       `json:"content"`
	Headings    Headings     `json:"headings"`
	Links       []Link       `json:"links"`
	Images      []Image      `json:"images"`
	CompanyInfo *CompanyInfo `json:"companyInfo,omitempty"`
}

// Metadata describes how a record was obtained.
type Metadata struct {
	ScrapedAt     time.Time `json:"scrapedAt"`
	ResponseTime  int64     `json:"responseTime"`
	StatusCode    int       `json:"statusCode"`
	ContentLength int       `json:"contentLength"`
	UsedBrowser   bool      `json:"usedBrowser"`
	ContentHash   string    `json:"contentHash,omitempty"`
	ArchiveURI    string    `json:"archiveUri,omitempty"`
}

// ScrapedRecord is the persisted result of one successful scrape.
type ScrapedRecord struct {
	ID           string              `json:"id"`
	URL          string              `json:"url"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Content      string              `json:"content"`
	Headings     Headings            `json:"headings"`
	Links        []Link              `json:"links"`
	Images       []Image             `json:"images"`
	Metadata     Metadata            `json:"metadata"`
	CompanyInfo  *CompanyInfo        `json:"companyInfo,omitempty"`
	Technologies map[string][]string `json:"technologies,omitempty"`
	UserID       string              `json:"userId"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// RecordSummary is the list view of a record; page body fields are left out.
type RecordSummary struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Metadata    Metadata     `json:"metadata"`
	CompanyInfo *CompanyInfo `json:"companyInfo,omitempty"`
	UserID      string       `json:"userId"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Summary projects the record onto its list view.
func (r ScrapedRecord) Summary() RecordSummary {
	return RecordSummary{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Metadata:    r.Metadata,
		CompanyInfo: r.CompanyInfo,
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// BulkResult is the per-URL outcome of a bulk scrape.
type BulkResult struct {
	Success bool           `json:"success"`
	Data    *ScrapedRecord `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	URL     string         `json:"url"`
}

// DeleteResult reports how many records a delete removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// FetchResult is what a Fetcher hands back for one URL.
type FetchResult struct {
	URL         string
	FinalURL    string
	HTML        string
	StatusCode  int
	Headers     http.Header
	Elapsed     time.Duration
	UsedBrowser bool
}

// ElapsedMillis returns the elapsed time in whole milliseconds, never negative.
func (r FetchResult) ElapsedMillis() int64 {
	if r.Elapsed < 0 {
		return 0
	}
	return r.Elapsed.Milliseconds()
}
