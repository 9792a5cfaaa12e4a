package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

// maxRetryWait caps a server-provided Retry-After; longer waits give up.
const maxRetryWait = 5 * time.Second

type retrying struct {
	p        domain.Provider
	attempts int
}

// WithRetry wraps a provider so transient failures (transport errors, 429
// and 5xx) are retried up to attempts more times. attempts <= 0 returns p.
func WithRetry(p domain.Provider, attempts int) domain.Provider {
	if attempts <= 0 {
		return p
	}
	return &retrying{p: p, attempts: attempts}
}

func (r *retrying) Name() domain.Source { return r.p.Name() }

func (r *retrying) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	for i := 0; ; i++ {
		rs, err := r.p.Search(ctx, q)
		if err == nil {
			return rs, nil
		}
		wait, ok := retryWait(err, i)
		if !ok || i >= r.attempts {
			return nil, err
		}
		log.Debug().Str("provider", string(r.p.Name())).Int("attempt", i+1).Dur("wait", wait).Err(err).Msg("retrying provider")
		if !sleepCtx(ctx, wait) {
			return nil, err
		}
	}
}

// retryWait decides whether err is transient and how long to wait.
func retryWait(err error, attempt int) (time.Duration, bool) {
	var te *domain.TransportError
	if errors.As(err, &te) {
		return backoff(attempt), true
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Retryable() {
		if pe.RetryAfter > maxRetryWait {
			return 0, false
		}
		if pe.RetryAfter > 0 {
			return pe.RetryAfter, true
		}
		return backoff(attempt), true
	}
	return 0, false
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// Base doubles each attempt (200ms, 400ms, 800ms...) with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
