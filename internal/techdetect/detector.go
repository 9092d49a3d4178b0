// Package techdetect fingerprints the technologies behind a scraped page using wappalyzergo.
package techdetect

import (
	"fmt"
	"net/http"
	"sync"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"go.uber.org/zap"
)

// maxBodySize bounds the HTML handed to the fingerprinter.
const maxBodySize = 2 << 20

var (
	categoryNames     map[int]string
	categoryNamesOnce sync.Once
)

// Detector maps response headers and body to technology names and their categories.
type Detector struct {
	client *wappalyzer.Wappalyze
	logger *zap.Logger
}

// New loads the fingerprint database.
func New(logger *zap.Logger) (*Detector, error) {
	client, err := wappalyzer.New()
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	categoryNamesOnce.Do(func() {
		categoryNames = make(map[int]string)
		for id, cat := range wappalyzer.GetCategoriesMapping() {
			categoryNames[id] = cat.Name
		}
	})

	return &Detector{client: client, logger: logger}, nil
}

// Detect returns e.g. {"Nginx": ["Web servers"]}. It never returns nil.
func (d *Detector) Detect(headers http.Header, body []byte) map[string][]string {
	if len(body) > maxBodySize {
		body = body[:maxBodySize]
	}
	if headers == nil {
		headers = http.Header{}
	}

	technologies := make(map[string][]string)
	for tech, info := range d.client.FingerprintWithCats(headers, body) {
		categories := make([]string, 0, len(info.Cats))
		for _, id := range info.Cats {
			if name, ok := categoryNames[id]; ok {
				categories = append(categories, name)
			}
		}
		technologies[tech] = categories
	}

	d.logger.Debug("technology detection completed", zap.Int("tech_count", len(technologies)))
	return technologies
}
