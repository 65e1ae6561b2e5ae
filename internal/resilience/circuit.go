package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/toko-tierprice/internal/obs"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all calls and tracks failures.
	Closed State = iota
	// Open rejects calls until the cool-off period expires.
	Open
	// HalfOpen lets calls through to find out whether the dependency recovered.
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

// Breaker is a failure-ratio circuit breaker around one dependency.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// Settings configures a Breaker.
type Settings struct {
	// Target names the guarded dependency in logs and metrics.
	Target string

	// MinRequests is the number of calls observed before the ratio is evaluated.
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
}

// NewBreaker constructs a breaker that opens once the failure ratio reaches
// FailureRatio over at least MinRequests calls.
func NewBreaker(s Settings) *Breaker {
	if s.MinRequests <= 0 {
		s.MinRequests = 1
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	if s.FailureRatio > 1 {
		s.FailureRatio = 1
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	target := strings.TrimSpace(s.Target)
	if target == "" {
		target = "default"
	}
	b := &Breaker{
		state:        Closed,
		minRequests:  s.MinRequests,
		failureRatio: s.FailureRatio,
		openFor:      s.OpenFor,
		target:       target,
		logger:       s.Logger,
		now:          time.Now,
	}
	b.recordStateLocked()
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call is permitted. An open breaker permits calls
// again after the cool-off period and moves to half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.openFor {
		b.changeStateLocked(ctx, HalfOpen)
		return true
	}
	return false
}

// Report records the outcome of a call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	ratio := float64(b.failures) / float64(total)
	if ratio >= b.failureRatio {
		b.changeStateLocked(ctx, Open)
	} else if total > b.minRequests*2 {
		// decay so old successes cannot mask a new outage
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

// Backoff returns an exponential backoff for attempt (starting at 1). Jitter is
// a fraction of the delay, 0.2 meaning plus or minus 20%.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}

func (b *Breaker) changeStateLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	if next == Open {
		b.openedAt = b.now()
	}
	b.failures = 0
	b.successes = 0
	b.recordStateLocked()

	if obs.BreakerTransitionsTotal != nil {
		obs.BreakerTransitionsTotal.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	evt := b.logger.Info()
	if next == Open {
		evt = b.logger.Warn()
	}
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String()).Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if obs.BreakerState == nil {
		return
	}
	obs.BreakerState.WithLabelValues(b.target).Set(stateGaugeValue(b.state))
}

func stateGaugeValue(state State) float64 {
	switch state {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}
