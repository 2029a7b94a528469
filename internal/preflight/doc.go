// Package preflight provides readiness checks for the filesystem paths,
// storage backend and remote services cargoport depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs every failure; a
//     failing check never blocks startup because each job reports its own
//     errors on every tick.
//   - The CLI "cargoport config validate" command prints the same results.
//
// Each remote check is gated by its config toggle -- disabled features are skipped.
package preflight
