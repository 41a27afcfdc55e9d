// Package store is the SQLite execution template. Entities of every
// collection share one documents table and are stored as JSON bodies keyed
// by (collection, id).
//
// Queries are compiled by internal/querysql. Conditions match through
// json_each, so a leaf on an array field matches when any element does,
// the same as the in-memory store.
//
// # Deterministic results
//
// Every SELECT orders by the query's sorts and then by id COLLATE BINARY,
// so pages never overlap and repeated runs return the same rows.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single open connection, since SQLite allows one writer
package store
