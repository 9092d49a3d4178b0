// Package detector flags statically fetched pages that are likely client-rendered shells.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

const (
	defaultMinTextLength = 200
	scriptShareThreshold = 25
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	// MinTextLength is the visible-text size below which a script-heavy page counts as a shell.
	MinTextLength int
}

// NewHeuristic creates a new detector.
func NewHeuristic(minTextLength int) *Heuristic {
	if minTextLength <= 0 {
		minTextLength = defaultMinTextLength
	}
	return &Heuristic{MinTextLength: minTextLength}
}

var mountSelectors = []string{
	"#__next",
	"#___gatsby",
	"#root:empty",
	"#app:empty",
	"[data-reactroot]",
	"[ng-version]",
}

// ShouldPromote reports whether a successful static result should be re-fetched in a browser.
func (h *Heuristic) ShouldPromote(res scraper.FetchResult) bool {
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return false
	}
	if strings.TrimSpace(res.HTML) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return false
	}

	textLen := visibleTextLength(doc)
	if textLen >= h.MinTextLength {
		return false
	}
	for _, sel := range mountSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return scriptShare(doc, len(res.HTML)) >= scriptShareThreshold
}

func visibleTextLength(doc *goquery.Document) int {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return len(strings.Join(strings.Fields(body.Text()), " "))
}

// scriptShare returns the percentage of the document taken up by inline script bodies.
func scriptShare(doc *goquery.Document, total int) int {
	if total == 0 {
		return 0
	}
	scripts := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts += len(s.Text())
	})
	return scripts * 100 / total
}
