package session

import (
	"context"
	"time"
)

// startPoller runs poll on a fixed interval until ctx is cancelled. The loop
// is sequential: the timer is only re-armed after a poll returns, so a new
// poll can never fire while the previous one is still in flight for the same
// room. The interval is the floor for "real-time" behavior when the push
// channel is unavailable.
func startPoller(ctx context.Context, interval time.Duration, poll func(context.Context)) {
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				poll(ctx)
				timer.Reset(interval)
			}
		}
	}()
}
