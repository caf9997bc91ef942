// Package invoker calls a generation role with per-attempt timeouts, exponential
// backoff and a pluggable parser that decides what counts as success.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"gdd-orchestrator/internal/llm"
)

var ErrAttemptTimeout = errors.New("attempt timed out")

type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	BackoffBase float64
	// Jitter adds up to Jitter*delay on top of each delay. It never shortens one.
	Jitter    float64
	Retryable func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffBase: 2.0, Jitter: 0.1}
}

// Delay returns the wait before the attempt following failed attempt k (zero-based), without jitter.
func (p Policy) Delay(k int) time.Duration {
	base := p.BackoffBase
	if base <= 0 {
		base = 2.0
	}
	return time.Duration(math.Pow(base, float64(k)) * float64(time.Second))
}

type Request struct {
	Role         string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	JSONMode     bool
}

type Metadata struct {
	Role         string
	Model        string
	Attempts     int
	InputTokens  int64
	OutputTokens int64
	Latency      time.Duration
	FinishReason string
	Raw          string
	Delays       []time.Duration
}

// RoleInvocationError is returned once every attempt has failed.
type RoleInvocationError struct {
	Role     string
	Attempts int
	LastRaw  string
	Errors   []error
}

func (e *RoleInvocationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %s", e.Role, e.Attempts, strings.Join(parts, "; "))
}

func (e *RoleInvocationError) Unwrap() []error { return e.Errors }

type settings struct {
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	jitter  func() float64
	logger  *slog.Logger
	onRetry func(role string, attempt int, cause error)
}

type Option func(*settings)

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *settings) { s.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithJitterSource replaces the random source used for jitter; fn must return values in [0, 1).
func WithJitterSource(fn func() float64) Option {
	return func(s *settings) { s.jitter = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithRetryHook is called before every retry with the attempt about to run and the previous failure.
func WithRetryHook(fn func(role string, attempt int, cause error)) Option {
	return func(s *settings) { s.onRetry = fn }
}

type Invoker[T any] struct {
	client llm.Client
	parse  func(string) (T, error)
	policy Policy
	settings
}

func New[T any](client llm.Client, parse func(string) (T, error), policy Policy, opts ...Option) *Invoker[T] {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Retryable == nil {
		policy.Retryable = retryUnlessCanceled
	}
	s := settings{
		sleep:  sleepContext,
		now:    time.Now,
		jitter: rand.Float64,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Invoker[T]{client: client, parse: parse, policy: policy, settings: s}
}

// Invoke runs the role until parse accepts the output or attempts run out.
// Cancellation of ctx aborts immediately and returns ctx.Err().
func (inv *Invoker[T]) Invoke(ctx context.Context, req Request) (T, Metadata, error) {
	var zero T
	meta := Metadata{Role: req.Role, Model: req.Model}
	errs := make([]error, 0, inv.policy.MaxAttempts)

	for attempt := 1; attempt <= inv.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := inv.backoff(attempt - 2)
			meta.Delays = append(meta.Delays, delay)
			cause := errs[len(errs)-1]
			inv.logger.Warn("retrying role invocation",
				"role", req.Role, "attempt", attempt, "delay", delay.String(), "error", cause.Error())
			if inv.onRetry != nil {
				inv.onRetry(req.Role, attempt, cause)
			}
			if err := inv.sleep(ctx, delay); err != nil {
				return zero, meta, err
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, meta, err
		}

		meta.Attempts = attempt
		v, err := inv.attempt(ctx, req, &meta)
		if err == nil {
			return v, meta, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, meta, ctxErr
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", attempt, err))
		if !inv.policy.Retryable(err) {
			break
		}
	}

	return zero, meta, &RoleInvocationError{
		Role:     req.Role,
		Attempts: meta.Attempts,
		LastRaw:  meta.Raw,
		Errors:   errs,
	}
}

func (inv *Invoker[T]) attempt(ctx context.Context, req Request, meta *Metadata) (T, error) {
	var zero T
	attemptCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	start := inv.now()
	out, err := inv.client.Complete(attemptCtx, llm.CompletionRequest{
		Role:         req.Role,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		JSONMode:     req.JSONMode,
	})
	meta.Latency += inv.now().Sub(start)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, req.Timeout, err)
		}
		return zero, err
	}

	meta.Raw = out.Content
	meta.InputTokens += out.InputTokens
	meta.OutputTokens += out.OutputTokens
	meta.FinishReason = out.FinishReason
	if out.Model != "" {
		meta.Model = out.Model
	}
	return inv.parse(out.Content)
}

func (inv *Invoker[T]) backoff(k int) time.Duration {
	delay := inv.policy.Delay(k)
	if inv.policy.Jitter > 0 {
		delay += time.Duration(inv.jitter() * inv.policy.Jitter * float64(delay))
	}
	return delay
}

func retryUnlessCanceled(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
