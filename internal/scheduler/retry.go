package scheduler

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping delay between failures. It
// returns nil on the first success and the last error once every attempt
// has failed. Context cancellation cuts the wait short.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
