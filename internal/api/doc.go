// Package api holds the transport-neutral operations behind the HTTP routes
// and the CLI, plus the wire types they return.
//
// # Key Types
//
// CargoService: intake, reads and direct text edits for cargo. Intake writes
// the texture before the row exists, so the enrichment job never selects a
// cargo whose image is missing. Edits publish a cargoInfo event just like
// generated text does.
//
// NewsService: read access to stored headlines.
//
// StatusResponse: daemon running state, job statistics, subscriber count and
// store health for GET /api/status.
//
// # Design Notes
//
// Request types carry validator tags and are checked with Check before any
// store call. Validation failures are services.ErrValidation marked so the
// HTTP layer can map them to 400 without inspecting messages. Cargo is always
// returned as cargo.View, which hides the claim lease.
package api
