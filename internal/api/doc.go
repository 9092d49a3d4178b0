// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - /api/v1/scraper for single and bulk scrapes, history, lookup, and deletes.
//
// Scraper routes require the X-User-ID header set by the upstream auth layer.
// Responses use the {success, code, data, message, timestamp} envelope; failures
// use {success, code, error, type, timestamp}.
package api
