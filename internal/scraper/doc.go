// Package scraper defines the core records, errors, and collaborator interfaces of the
// website scraping subsystem, plus the services that drive it:
//   - Service.Scrape runs fetch -> extract -> persist for a single URL.
//   - Service.ScrapeMany fans a batch out concurrently and reports per-URL outcomes.
//   - Service.History, Get, DeleteAll and DeleteByIDs expose caller-scoped record access.
//
// Every record and query is owned by a caller id supplied by the surrounding service.
package scraper
