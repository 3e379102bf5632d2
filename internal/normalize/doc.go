// Package normalize maps raw, adapter-specific listings into the canonical
// Event shape.
//
// Normalization resolves relative ticket and image links against the
// adapter's base URL, parses raw date text through source-specific format
// rules, and collapses whitespace. A listing missing a title, a resolvable
// ticket URL, or a parseable start time is dropped with a logged warning;
// normalization never fails a batch.
package normalize
