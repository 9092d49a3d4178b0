package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

const (
	maxLinks  = 50
	maxImages = 20
)

// Extractor implements scraper.Extractor on top of goquery.
type Extractor struct {
	logger *zap.Logger
}

// New builds an Extractor. A nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses html and returns the page fields. sourceURL becomes companyInfo.website.
func (e *Extractor) Extract(html string, sourceURL string) (page scraper.ExtractedPage) {
	page = emptyPage()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract panicked", zap.String("url", sourceURL), zap.Any("panic", r))
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("parse html failed", zap.String("url", sourceURL), zap.Error(err))
		return page
	}

	page.Title = cleanText(doc.Find("title").First().Text())
	page.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	page.Headings = scraper.Headings{
		H1: headingTexts(doc, "h1"),
		H2: headingTexts(doc, "h2"),
		H3: headingTexts(doc, "h3"),
	}
	page.Links = collectLinks(doc)
	page.Images = collectImages(doc)
	page.Content = visibleText(doc)
	page.CompanyInfo = companyInfo(doc, html, sourceURL)
	return page
}

func emptyPage() scraper.ExtractedPage {
	return scraper.ExtractedPage{
		Headings: scraper.Headings{H1: []string{}, H2: []string{}, H3: []string{}},
		Links:    []scraper.Link{},
		Images:   []scraper.Image{},
	}
}

func headingTexts(doc *goquery.Document, tag string) []string {
	out := []string{}
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		out = append(out, cleanText(s.Text()))
	})
	return out
}

func collectLinks(doc *goquery.Document) []scraper.Link {
	links := make([]scraper.Link, 0, maxLinks)
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		links = append(links, scraper.Link{Text: cleanText(s.Text()), Href: href})
		return len(links) < maxLinks
	})
	return links
}

func collectImages(doc *goquery.Document) []scraper.Image {
	images := make([]scraper.Image, 0, maxImages)
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return true
		}
		images = append(images, scraper.Image{Alt: strings.TrimSpace(s.AttrOr("alt", "")), Src: src})
		return len(images) < maxImages
	})
	return images
}

// visibleText returns the body text with script, style and noscript content removed.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	clone := body.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return cleanText(clone.Text())
}

// cleanText trims and collapses runs of whitespace to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
