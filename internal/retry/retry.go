package retry

import (
	"context"
	"time"
)

// Fn is one attempt. It receives the attempt number starting at 1.
type Fn func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is done.
// The delay between attempts is fixed. When ctx ends first, the last attempt
// error is returned if there was one, otherwise ctx.Err().
func Do(ctx context.Context, attempts int, wait time.Duration, fn Fn) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return err
		}

		err = fn(ctx, i)
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	return err
}
