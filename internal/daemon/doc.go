// Package daemon coordinates the long-running cargoport process.
//
// It wires configuration, the storage backend, the broadcast hub and the job
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances against one data directory. On start it releases
// enrichment claims left behind by a previous process, then serves the HTTP
// API and WebSocket feed and begins ticking jobs.
//
// Keep orchestration logic here: job bodies live in internal/jobs and the
// transitions they drive live in their own packages.
package daemon
