package clients

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker. Zero values fall back to
// one failure, a 30s cool-down and a single half-open probe.
type CircuitBreakerConfig struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenLimit int
}

const defaultBreakerTimeout = 30 * time.Second

type transition struct {
	from, to State
}

// CircuitBreaker stops calls to the remote after MaxFailures consecutive
// failed requests. After Timeout it lets up to HalfOpenLimit probes through;
// that many successes close it again and any failure reopens it.
//
// The state-change callback runs on the caller's goroutine once the lock is
// released, so it may call State.
type CircuitBreaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
	cfg       CircuitBreakerConfig

	onStateChange func(from, to State)

	now func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultBreakerTimeout
	}

	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to observe transitions.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.onStateChange = fn
}

// Allow reports whether a request may proceed. An open breaker whose
// cool-down has elapsed moves to half-open and admits the caller as a probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	var (
		ok bool
		t  *transition
	)

	switch cb.state {
	case StateClosed:
		ok = true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout {
			t = cb.transitionTo(StateHalfOpen)
			cb.inFlight = 1
			ok = true
		}
	case StateHalfOpen:
		if cb.inFlight < cb.cfg.HalfOpenLimit {
			cb.inFlight++
			ok = true
		}
	}

	cb.mu.Unlock()
	cb.notify(t)

	return ok
}

// RecordSuccess records a completed request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	var t *transition

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.inFlight = max(cb.inFlight-1, 0)
		cb.successes++

		if cb.successes >= cb.cfg.HalfOpenLimit {
			t = cb.transitionTo(StateClosed)
		}
	}

	cb.mu.Unlock()
	cb.notify(t)
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	var t *transition

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			t = cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.inFlight = max(cb.inFlight-1, 0)
		t = cb.transitionTo(StateOpen)
	}

	cb.mu.Unlock()
	cb.notify(t)
}

// State returns the current state without advancing the cool-down.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// transitionTo must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(to State) *transition {
	if cb.state == to {
		return nil
	}

	t := &transition{from: cb.state, to: to}
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	if to == StateOpen {
		cb.openedAt = cb.now()
		cb.inFlight = 0
	}

	return t
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil {
		return
	}

	cb.mu.Lock()
	fn := cb.onStateChange
	cb.mu.Unlock()

	if fn != nil {
		fn(t.from, t.to)
	}
}
