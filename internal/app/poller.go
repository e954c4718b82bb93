package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/state"
)

const (
	defaultPollInterval = 5 * time.Minute
	maxBackoff          = 30 * time.Minute
)

// Loader refreshes the pandal cache. force=false lets a fresh cache through
// without a fetch.
type Loader interface {
	Load(ctx context.Context, force bool) error
}

// StartPoller launches a background goroutine that keeps the pandal cache
// warm. It returns immediately; the returned channel closes once the
// goroutine has exited after ctx is cancelled.
func StartPoller(ctx context.Context, loader Loader, interval time.Duration, log *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := refresh(ctx, loader); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				wait := calculateBackoff(failures, interval)
				log.Warn("pandal refresh failed",
					zap.Error(err),
					zap.Int("failures", failures),
					zap.Duration("retry_in", wait))
				timer.Reset(wait)
				continue
			}
			if failures > 0 {
				log.Info("pandal refresh recovered", zap.Int("failures", failures))
			}
			failures = 0
			timer.Reset(interval)
		}
	}()
	return done
}

// refresh loads through the freshness window. A load already in flight
// counts as success.
func refresh(ctx context.Context, loader Loader) error {
	return state.IgnoreInFlight(loader.Load(ctx, false))
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
