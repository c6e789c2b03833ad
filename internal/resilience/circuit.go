package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker opens once the failure ratio over at least minRequests calls
// reaches failureRatio, and stays open for openFor.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	total        int
	probing      bool
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker constructs a closed breaker. Zero arguments take defaults.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 5
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		target:       "default",
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithTarget names the upstream for metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	b.recordStateLocked()
	return b
}

// WithLogger sets the logger used for transitions.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may go out now.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an allowed request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.total++
	if !success {
		b.failures++
	}
	if b.total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(b.total) >= b.failureRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	if b.total >= b.minRequests*2 {
		b.total /= 2
		b.failures /= 2
	}
}

// Backoff returns the exponential delay before retry attempt+1.
// jitterPct is a fraction, e.g. 0.2 for 20%.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.failures, b.total = 0, 0
	if next == Open {
		b.openedAt = b.now()
	}
	b.recordStateLocked()
	if prev == next {
		return
	}
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}
	evt := b.logger.Warn()
	if next == Closed {
		evt = b.logger.Info()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String()).Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if BreakerState == nil {
		return
	}
	var v float64
	switch b.state {
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	}
	BreakerState.WithLabelValues(b.target).Set(v)
}
