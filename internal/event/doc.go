// Package event defines the data model shared across the ingestion pipeline.
//
// The event package holds the canonical Event record persisted in the catalog,
// the transient RawListing produced by source adapters before normalization,
// and the Email capture entity written by the (external) email-capture
// workflow. The absolute ticket URL is the sole identity used to merge
// repeated observations of the same event across scrape cycles.
package event
