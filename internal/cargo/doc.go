// Package cargo defines the cargo data model shared by the stores, the
// lifecycle engine, the enrichment pipeline and the HTTP API.
//
// A Cargo moves forward through shipping, delivered and launched. Its name and
// description start absent and are filled at most once, either by the
// enrichment pipeline or by a direct edit. The Pending flag and ClaimedAt lease
// guard enrichment and never leave the process: View is the external shape.
package cargo
