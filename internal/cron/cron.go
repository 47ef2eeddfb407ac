// Package cron runs the periodic maintenance of the conversation store:
// expiring idle conversations, dropping stale threads and refreshing
// summaries.
package cron

import (
	"context"
	"time"
)

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *") or a
	// descriptor such as "@hourly" or "@every 15m".
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// Observer is notified after every job run.
type Observer interface {
	JobRan(name string, elapsed time.Duration, err error)
}

// Every returns the descriptor schedule running every d.
func Every(d time.Duration) string {
	return "@every " + d.String()
}
