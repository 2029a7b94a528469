// Package postgres is the Postgres cargo store. It mirrors the SQLite store
// statement for statement using pgxpool, and applies its schema with
// golang-migrate from migrations embedded in the binary.
package postgres
