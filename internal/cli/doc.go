// Package cli implements the command-line interface for city-events.
//
// The cli package provides the Cobra-based entry point that wires
// configuration, the catalog store, the crawl gate, the source adapters,
// and the scheduler together, then runs the ingestion loop until shutdown.
// A --once mode runs a single cycle and exits, for cron-style or manual
// runs.
package cli
