package generation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"askmynotes/internal/domain"
)

const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 10 * time.Second
)

// Policy bounds a retry loop. Attempt n (zero-based) that fails with a
// retryable error is followed by a wait of BaseDelay * 2^n.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable reports whether err is transient. Nil means only
	// domain.ErrRateLimited is retried.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy retries rate limiting twice, waiting 10s then 20s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.Is(err, domain.ErrRateLimited)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.BaseDelay << uint(max(p.MaxRetries, 0))
	exp.MaxElapsedTime = 0
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Retry runs op until it succeeds, fails with a non-retryable error, or
// the policy's retry budget is spent. The last error is returned as is.
// Cancelling ctx stops waiting between attempts but never interrupts an
// attempt already in flight beyond what op itself does with ctx.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		attempt int
	)
	operation := func() error {
		res, err := op(ctx)
		if err != nil {
			if !p.retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		attempt++
	}
	if err := backoff.RetryNotify(operation, p.backOff(ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
