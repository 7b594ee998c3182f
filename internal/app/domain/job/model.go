// Package job records scheduled-job completion markers.
package job

import "time"

// Run marks one completed execution of a named job for one period. The jobs
// service checks for a marker before applying effects, which keeps scheduled
// work idempotent against re-execution.
type Run struct {
	ID          string
	Job         string
	Period      string
	Processed   int
	Skipped     int
	CompletedAt time.Time
}

// Summary reports the outcome of one job invocation. Partial failures are
// listed per item and never abort the run.
type Summary struct {
	Job       string
	Period    string
	Processed int
	Skipped   int
	Failures  []string
}
