// Command scraperd runs the web scraper HTTP service.
//
// Configuration comes from an optional YAML file (-config), environment
// variables prefixed with SCRAPER_ (for example SCRAPER_DB_DSN), and an
// optional .env file loaded before either.
package main
