// Package services defines shared utilities consumed by the periodic jobs and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp cargo IDs, job kinds, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (not found, validation, transient) without string matching.
//
// Clients for external services live in subpackages.
package services
