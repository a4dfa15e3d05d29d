package schedule

import (
	"context"
	"fmt"
	"time"
)

// MaxWaitStep bounds a single sleep so cancellation and clock changes are
// noticed promptly.
const MaxWaitStep = time.Second

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// WaitUntil blocks until clock reaches target. A target at or before now
// returns immediately. Cancellation of ctx returns ErrInterrupted.
func WaitUntil(ctx context.Context, clock Clock, target time.Time) error {
	for {
		remaining := target.Sub(clock.Now())
		if remaining <= 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		step := min(remaining, MaxWaitStep)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		case <-clock.After(step):
		}
	}
}
