// Package extract turns fetched HTML into the structured page fields stored with each
// scraped record: title, description, headings, links, images, visible text and a
// best-effort company profile.
//
// Extraction never fails. Malformed markup yields whatever the parser recovered.
package extract
