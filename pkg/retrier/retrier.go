// Package retrier replays calls that cross the exchange boundary when they fail with a transient error.
package retrier

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"regexp"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultInitialInterval = 10 * time.Second
	defaultMaxInterval     = 10 * time.Second
	defaultMultiplier      = 1.0
	defaultJitter          = 0.0

	// Unbounded disables the retry cap.
	Unbounded = -1
)

// ErrUnrecoverable marks a call abandoned because its error is not transient.
var ErrUnrecoverable = errors.New("unrecoverable error")

// recoverable matches transient upstream failures: exchange error codes, Go network errors,
// nonce/recvWindow rejections, rate limiting and gateway errors.
var recoverable = regexp.MustCompile(`(?i)(SOCKETTIMEDOUT|TIMEDOUT|CONNRESET|CONNREFUSED|NOTFOUND|` +
	`invalid nonce|recvWindow|between Cloudflare and the origin web server|` +
	`i/o timeout|timeout exceeded|connection reset|connection refused|no such host|broken pipe|unexpected EOF|` +
	`too many requests|rate limit|bad gateway|gateway timeout|service unavailable)`)

// IsRecoverable reports whether err is a transient failure that is safe to replay verbatim.
func IsRecoverable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	return recoverable.MatchString(err.Error())
}

// UnrecoverableError wraps the error of an abandoned call.
type UnrecoverableError struct {
	Method string
	Err    error
}

func (e *UnrecoverableError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("unrecoverable error: %v", e.Err)
	}
	return fmt.Sprintf("%s: unrecoverable error: %v", e.Method, e.Err)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

func (e *UnrecoverableError) Is(target error) bool { return target == ErrUnrecoverable }

// Attempt describes a failed invocation inside one retry cycle.
type Attempt struct {
	// Method name of the operation.
	Method string
	// Args argument value the operation was invoked with.
	Args any
	// LastError error returned by the invocation.
	LastError error
	// Number 1-based invocation number within the cycle.
	Number int
}

var dumper = spew.ConfigState{
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Retrier replays failed calls with a fixed or exponential delay.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxRetries      int
	jitter          float64
	classify        func(error) bool
	logger          *zap.Logger
	onRetry         func(Attempt)
	onAbandon       func(Attempt)
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the delay before the first replay.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
		if r.maxInterval < d {
			r.maxInterval = d
		}
	}
}

// WithMaxInterval sets the maximum retry interval.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) {
		r.multiplier = m
	}
}

// WithMaxRetries sets the maximum number of retries, Unbounded disables the cap.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// WithClassifier replaces IsRecoverable.
func WithClassifier(fn func(error) bool) Option {
	return func(r *Retrier) {
		r.classify = fn
	}
}

// WithLogger sets the logger used for retry and abandon messages.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retrier) {
		r.logger = l
	}
}

// WithOnRetry registers a hook called before every replay.
func WithOnRetry(fn func(Attempt)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// WithOnAbandon registers a hook called when a call is given up.
func WithOnAbandon(fn func(Attempt)) Option {
	return func(r *Retrier) {
		r.onAbandon = fn
	}
}

// New creates a Retrier replaying recoverable failures every 10s without a retry cap.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		multiplier:      defaultMultiplier,
		maxRetries:      Unbounded,
		jitter:          defaultJitter,
		classify:        IsRecoverable,
		logger:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes the given function with retries.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.DoCall(ctx, "", nil, fn)
}

// DoCall executes fn, a named operation invoked with args, replaying it on recoverable errors.
// Non-recoverable errors are logged and returned as *UnrecoverableError without any replay.
func (r *Retrier) DoCall(ctx context.Context, method string, args any, fn func(ctx context.Context) error) error {
	interval := r.initialInterval

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		a := Attempt{Method: method, Args: args, LastError: err, Number: attempt}

		if !r.classify(err) {
			r.abandon(a, "unrecoverable error, call abandoned")
			return &UnrecoverableError{Method: method, Err: err}
		}

		if r.maxRetries != Unbounded && attempt > r.maxRetries {
			r.abandon(a, "retries exhausted, call abandoned")
			return err
		}

		sleepDuration := r.withJitter(interval)
		r.logger.Warn("recoverable error, retrying",
			zap.String("method", method),
			zap.String("args", dumper.Sprintf("%+v", args)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", sleepDuration),
			zap.Error(err))
		if r.onRetry != nil {
			r.onRetry(a)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepDuration):
		}

		interval = time.Duration(float64(interval) * r.multiplier)
		if interval > r.maxInterval {
			interval = r.maxInterval
		}
	}
}

func (r *Retrier) withJitter(interval time.Duration) time.Duration {
	if r.jitter == 0 {
		return interval
	}
	jitter := (rand.Float64()*2 - 1) * r.jitter * float64(interval)
	d := time.Duration(float64(interval) + jitter)
	if d < 0 {
		return 0
	}
	return d
}

func (r *Retrier) abandon(a Attempt, msg string) {
	r.logger.Error(msg,
		zap.String("method", a.Method),
		zap.String("args", dumper.Sprintf("%+v", a.Args)),
		zap.Int("attempt", a.Number),
		zap.Error(a.LastError))
	if r.onAbandon != nil {
		r.onAbandon(a)
	}
}

// DoWithData executes the given function with retries and returns a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// Invoke calls fn with args and replays it with the same args value on recoverable failures.
func Invoke[A, T any](r *Retrier, ctx context.Context, method string, args A, fn func(context.Context, A) (T, error)) (T, error) {
	var result T
	err := r.DoCall(ctx, method, args, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx, args)
		return e
	})
	return result, err
}
