package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/microblog-go/microblog/internal/common/clock"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/observability/metrics"
)

const (
	stateClosed   = 0
	stateOpen     = 1
	stateHalfOpen = 2
)

// CircuitBreaker opens after Threshold consecutive failures and stays open
// for ResetAfter. It then lets a single trial call through: success closes
// the circuit, failure opens it for another ResetAfter.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	trial       bool
	threshold   int
	timeout     time.Duration
	resetAfter  time.Duration
	name        string
	clock       clock.Clock
	log         *logger.Logger
}

type CircuitBreakerConfig struct {
	Threshold  int
	Timeout    time.Duration
	ResetAfter time.Duration
	Name       string
	Clock      clock.Clock
	Logger     *logger.Logger
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	c := config.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold:  threshold,
		timeout:    config.Timeout,
		resetAfter: config.ResetAfter,
		name:       config.Name,
		clock:      c,
		log:        config.Logger,
	}
}

// IsOpen reports whether a call made now would be rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.failures < cb.threshold {
		return false
	}
	return cb.trial || !cb.resetElapsedLocked()
}

func (cb *CircuitBreaker) resetElapsedLocked() bool {
	return cb.clock.Now().Sub(cb.lastFailure) > cb.resetAfter
}

// allow decides whether fn may run. Past the reset window of an open
// circuit it admits exactly one trial until that trial reports back.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.failures < cb.threshold {
		cb.setState(stateClosed)
		return true
	}
	if cb.trial || !cb.resetElapsedLocked() {
		cb.setState(stateOpen)
		return false
	}

	cb.trial = true
	cb.setState(stateHalfOpen)
	if cb.log != nil {
		cb.log.Infof("circuit breaker [%s]: half-open, allowing trial call", cb.name)
	}
	return true
}

func (cb *CircuitBreaker) setState(state float64) {
	if cb.name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(state)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	cb.failures++
	cb.lastFailure = cb.clock.Now()
	cb.trial = false
	if cb.failures >= cb.threshold {
		cb.setState(stateOpen)
	}
	cb.mu.Unlock()

	if cb.name != "" {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.name).Inc()
	}
	if cb.log != nil {
		cb.log.Warnf("circuit breaker [%s]: failure recorded", cb.name)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.trial = false
	cb.setState(stateClosed)
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	return cb.CallWithFallback(ctx, fn, nil)
}

// CallWithFallback runs fn with the breaker's timeout. When the circuit is
// open fn is skipped; fallback, if given, supplies the result in both the
// open and the failed case.
func (cb *CircuitBreaker) CallWithFallback(ctx context.Context, fn func(context.Context) error, fallback func(error) error) error {
	if !cb.allow() {
		if cb.log != nil {
			cb.log.Debugf("circuit breaker [%s]: circuit is open, skipping call", cb.name)
		}
		if fallback != nil {
			return fallback(commonerrors.ErrCircuitOpen)
		}
		return commonerrors.ErrCircuitOpen
	}

	callCtx := ctx
	if cb.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.timeout)
		defer cancel()
	}

	if err := fn(callCtx); err != nil {
		cb.recordFailure()
		if fallback != nil {
			return fallback(err)
		}
		return err
	}

	cb.recordSuccess()
	return nil
}
