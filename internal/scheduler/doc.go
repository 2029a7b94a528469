// Package scheduler runs each registered job on its own fixed period.
//
// Ticks run in their own goroutines, so a slow or failing job never delays
// another job, and one job may overlap itself when a tick outlasts its
// period. Panics are recovered and recorded like errors. Stop cancels the run
// context; in-flight ticks are expected to return promptly once it is done.
package scheduler
