package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/utils/logging"
)

// runWithRetry runs fn up to maxAttempts times with exponential backoff
// between attempts. It is the shared retry wrapper of the persistence
// pipelines: on exhaustion it returns the last error so the caller can
// record a failure flag instead of propagating it further.
func runWithRetry(ctx context.Context, name string, maxAttempts int, initialBackoff time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error

	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < maxAttempts {
			logging.From(ctx).Warn("retrying after failure",
				slog.String("job", name),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.Any("error", lastErr))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "retry aborted", goerr.V("job", name))
			}
			backoff *= 2
		}
	}

	return goerr.Wrap(lastErr, "exhausted retries",
		goerr.V("job", name), goerr.V("attempts", maxAttempts))
}
