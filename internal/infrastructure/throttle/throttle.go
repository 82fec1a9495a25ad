// Package throttle limits how hard the bot leans on a provider.
package throttle

import (
	"context"
	"fmt"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Options bounds request rate and in-flight calls for one provider.
// Zero values disable the corresponding limit.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
}

type throttled struct {
	next    repository.ImageGenerator
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// Wrap returns gen guarded by the given limits
func Wrap(gen repository.ImageGenerator, opts Options) repository.ImageGenerator {
	if opts.RequestsPerSecond <= 0 && opts.MaxConcurrent <= 0 {
		return gen
	}

	t := &throttled{next: gen}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.MaxConcurrent > 0 {
		t.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return t
}

func (t *throttled) ID() string    { return t.next.ID() }
func (t *throttled) Label() string { return t.next.Label() }

// Generate waits for a slot, then delegates. A cancelled wait is a Failure.
func (t *throttled) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	if t.sem != nil {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return entity.Failure(t.next.ID(), fmt.Errorf("waiting for free slot: %w", err))
		}
		defer t.sem.Release(1)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return entity.Failure(t.next.ID(), fmt.Errorf("rate limited: %w", err))
		}
	}

	return t.next.Generate(ctx, prompt)
}
