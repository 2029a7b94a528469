// Package store persists cargo and news in SQLite.
//
// Every lifecycle transition, enrichment claim and release is a single
// conditional UPDATE so concurrent jobs and request handlers cannot double
// apply a change. Timestamps are stored as fixed-width UTC text so string
// comparison in SQL matches chronological order.
//
// Open selects between this SQLite store and the Postgres backend in
// store/postgres based on the [store] configuration section.
package store
