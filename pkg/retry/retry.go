// Package retry wraps calls to rate-limited upstream APIs with exponential
// backoff. Only throttling and transient server statuses are retried; every
// other failure is returned to the caller on the first attempt.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 5
	DefaultMaxBackoff = 32 * time.Second
)

// Timer is the clock used between attempts. Tests inject a fake one.
type Timer = backoff.Timer

// Option configures a single Do call.
type Option func(*options)

type options struct {
	maxRetries int
	maxBackoff time.Duration
	timer      Timer
	notify     backoff.Notify
	rand       func() float64
	logger     *zap.Logger
}

// WithMaxRetries sets the number of attempts made before the last error is
// returned. Values below 1 are treated as 1.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.maxRetries = n
	}
}

// WithMaxBackoff caps a single wait.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxBackoff = d
		}
	}
}

func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithNotify registers a callback invoked before each wait.
func WithNotify(fn func(err error, wait time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(o *options) { o.rand = fn }
}

// WithLogger logs every scheduled retry at warn level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. On exhaustion the error of the final attempt is
// returned. Cancelling ctx while waiting returns ctx.Err().
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{
		maxRetries: DefaultMaxRetries,
		maxBackoff: DefaultMaxBackoff,
		rand:       rand.Float64,
	}
	for _, opt := range opts {
		opt(&o)
	}

	policy := &exponential{maxBackoff: o.maxBackoff, rand: o.rand}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.maxRetries-1)), ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		if o.logger != nil {
			status, _ := StatusOf(err)
			o.logger.Warn("retry.scheduled",
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
		if o.notify != nil {
			o.notify(err, wait)
		}
	}

	return backoff.RetryNotifyWithTimerAndData(operation, b, notify, o.timer)
}

// Delay returns the wait before retry number n: 2^n seconds plus jitter,
// capped at max. jitter is expected in [0, 1).
func Delay(n int, max time.Duration, jitter float64) time.Duration {
	secs := math.Pow(2, float64(n)) + jitter
	if secs*float64(time.Second) >= float64(max) {
		return max
	}
	return time.Duration(secs * float64(time.Second))
}

// exponential implements backoff.BackOff with the Delay schedule.
type exponential struct {
	retries    int
	maxBackoff time.Duration
	rand       func() float64
}

func (e *exponential) NextBackOff() time.Duration {
	e.retries++
	return Delay(e.retries, e.maxBackoff, e.rand())
}

func (e *exponential) Reset() {
	e.retries = 0
}
