package ports

import (
	"context"
	"time"
)

// ProjectLocker serializes mutating work on a single project. Ledger writes
// and report ingestion for one project run single-writer; different projects
// proceed concurrently and unordered.
type ProjectLocker interface {
	// Acquire takes the project lock, returning a release function. Acquire
	// blocks until the lock is held or the context is done.
	Acquire(ctx context.Context, projectID string) (release func(), err error)
}

// Clock supplies the current time. Deadline evaluation takes time through
// this interface so sweeps are testable and replayable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
