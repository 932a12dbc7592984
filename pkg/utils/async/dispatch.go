package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine.
// It creates a background context (so the job outlives the triggering
// request) and handles errors and panics.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	// Create a new background context but preserve logger
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger := logging.From(bgCtx)
				logger.Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logger := logging.From(bgCtx)
			logger.Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}

// Tracker keeps a set of in-flight background jobs so a shutdown sequence
// can wait for them or log the ones being abandoned. There is no durable
// job queue behind it: a process exit mid-job drops the job, and later
// reconciliation relies on the failure flags the jobs leave on their
// records.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]int
	wg   sync.WaitGroup
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]int)}
}

// Dispatch runs handler like the package-level Dispatch, recording it
// under name while it is in flight.
func (t *Tracker) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	t.mu.Lock()
	t.jobs[name]++
	t.mu.Unlock()
	t.wg.Add(1)

	Dispatch(ctx, func(ctx context.Context) error {
		defer func() {
			t.mu.Lock()
			t.jobs[name]--
			if t.jobs[name] <= 0 {
				delete(t.jobs, name)
			}
			t.mu.Unlock()
			t.wg.Done()
		}()
		return handler(ctx)
	})
}

// Running returns the names of jobs currently in flight.
func (t *Tracker) Running() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.jobs))
	for name, n := range t.jobs {
		for i := 0; i < n; i++ {
			names = append(names, name)
		}
	}
	return names
}

// Drain waits for all in-flight jobs or until ctx is done, whichever
// comes first. When the context expires, the remaining jobs are logged
// and abandoned.
func (t *Tracker) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		remaining := t.Running()
		if len(remaining) > 0 {
			logging.From(ctx).Warn("abandoning in-flight background jobs",
				"jobs", remaining)
		}
	}
}
