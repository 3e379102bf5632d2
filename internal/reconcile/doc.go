// Package reconcile merges normalized events into the catalog and sweeps
// expirations.
//
// Each normalized event is upserted by its ticket URL: unseen URLs insert a
// new row, known URLs refresh the scraped fields in place while identity
// and bookkeeping fields (id, created_at, click_count, expires_at) stay
// untouched. A failure on one record is logged, counted as skipped, and
// never aborts the batch. After all adapters in a cycle have reconciled,
// the expiry sweep marks every past-dated, unmarked event as expired.
package reconcile
