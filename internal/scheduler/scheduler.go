package scheduler

import (
	"context"
	"time"

	"homescout-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs the task immediately and then on each tick until the context
// is cancelled. Task errors are logged, never fatal: the next tick retries.
func Every(ctx context.Context, interval time.Duration, name string, log *logging.Logger, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	if err := task(ctx); err != nil {
		log.Errorf("[%s] error: %v", name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Errorf("[%s] error: %v", name, err)
			}
		}
	}
}
