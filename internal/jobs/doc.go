// Package jobs holds the bodies of the periodic jobs and the shared context
// they run against.
//
// Each job kind from config.JobKinds maps to one Func. The scheduler owns
// timing and bookkeeping; a Func only does one tick of work and returns an
// error for the scheduler to record.
package jobs
