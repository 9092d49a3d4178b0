package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

// recordDocument carries the JSONB columns of a record row.
type recordDocument struct {
	headings     []byte
	links        []byte
	images       []byte
	metadata     []byte
	companyInfo  []byte
	technologies []byte
}

func encodeRecord(record scraper.ScrapedRecord) (recordDocument, error) {
	var (
		doc recordDocument
		err error
	)
	if doc.headings, err = json.Marshal(record.Headings); err != nil {
		return doc, fmt.Errorf("marshal headings: %w", err)
	}
	links := record.Links
	if links == nil {
		links = []scraper.Link{}
	}
	if doc.links, err = json.Marshal(links); err != nil {
		return doc, fmt.Errorf("marshal links: %w", err)
	}
	images := record.Images
	if images == nil {
		images = []scraper.Image{}
	}
	if doc.images, err = json.Marshal(images); err != nil {
		return doc, fmt.Errorf("marshal images: %w", err)
	}
	if doc.metadata, err = json.Marshal(record.Metadata); err != nil {
		return doc, fmt.Errorf("marshal metadata: %w", err)
	}
	if record.CompanyInfo != nil {
		if doc.companyInfo, err = json.Marshal(record.CompanyInfo); err != nil {
			return doc, fmt.Errorf("marshal company info: %w", err)
		}
	}
	if len(record.Technologies) > 0 {
		if doc.technologies, err = json.Marshal(record.Technologies); err != nil {
			return doc, fmt.Errorf("marshal technologies: %w", err)
		}
	}
	return doc, nil
}

func (d recordDocument) decodeInto(record *scraper.ScrapedRecord) error {
	if err := decodeJSON(d.headings, &record.Headings); err != nil {
		return err
	}
	if err := decodeJSON(d.links, &record.Links); err != nil {
		return err
	}
	if err := decodeJSON(d.images, &record.Images); err != nil {
		return err
	}
	if err := decodeJSON(d.metadata, &record.Metadata); err != nil {
		return err
	}
	if err := decodeCompanyInfo(d.companyInfo, &record.CompanyInfo); err != nil {
		return err
	}
	if len(d.technologies) > 0 {
		if err := decodeJSON(d.technologies, &record.Technologies); err != nil {
			return err
		}
	}
	if record.Links == nil {
		record.Links = []scraper.Link{}
	}
	if record.Images == nil {
		record.Images = []scraper.Image{}
	}
	return nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}

func decodeCompanyInfo(raw []byte, dst **scraper.CompanyInfo) error {
	if len(raw) == 0 || string(raw) == "null" {
		*dst = nil
		return nil
	}
	info := &scraper.CompanyInfo{}
	if err := decodeJSON(raw, info); err != nil {
		return err
	}
	*dst = info
	return nil
}
