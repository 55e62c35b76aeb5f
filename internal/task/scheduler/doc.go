// Package scheduler fires a single job on a fixed schedule.
//
// The job runs once synchronously at Start, then on every trigger of the
// schedule. At most one run is in flight: a trigger that arrives while the
// previous run is still going is dropped and counted, never queued. Stop
// waits for the in-flight run to finish.
package scheduler
