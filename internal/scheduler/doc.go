// Package scheduler drives ingestion cycles on a timer.
//
// One cycle runs every registered adapter through collection,
// normalization, and reconciliation, then the expiry sweep. The first cycle
// runs immediately at startup and subsequent cycles at a fixed interval;
// at most one cycle runs at a time, with late triggers skipped rather than
// queued. A fault in one adapter, including a panic, is caught, logged
// with the adapter's identity, and counted, and the remaining adapters
// still run. On shutdown an in-flight cycle finishes its current adapter
// and drains instead of starting the next one.
package scheduler
