// Package scraper provides HTTP fetching and HTML parsing for external
// event listing sites.
//
// The scraper package defines the Adapter capability implemented once per
// source site (eventbrite, meetup, timeout) plus the shared Fetcher every
// adapter requests pages through. The fetcher consults the crawl gate
// before each request; adapters contain all fetch and parse failures,
// yielding whatever listings were extracted before a failure instead of
// propagating errors. Extraction handles both server-rendered listing cards
// and embedded JSON-LD event blocks for script-heavy pages.
package scraper
