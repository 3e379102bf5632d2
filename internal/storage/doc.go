// Package storage provides the durable event catalog over bun and sqlite.
//
// The storage package owns the events and emails tables. The write side
// (lookup by ticket URL, insert, explicit-column update, expiry sweep) is
// consumed by the reconciler; the read side (filtered listing, click
// increment, email insert) is the stable contract consumed by the
// out-of-process query and email-capture collaborators.
package storage
