// Package gate enforces per-host crawling etiquette for all source adapters.
//
// The gate fetches and caches each host's robots.txt once per ingestion
// cycle and answers whether a given path may be requested. It also enforces
// a minimum inter-request delay per host, shared across adapters, so that
// concurrent adapters targeting the same host still serialize through the
// same delay.
package gate
