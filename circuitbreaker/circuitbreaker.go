package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/notifier"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Provider is queried normally
	StateOpen                  // Provider is skipped
	StateHalfOpen              // One probe request is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards a single provider
type CircuitBreaker struct {
	name            string
	state           State
	failures        int
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	lastFailureTime time.Time
	halfOpenStart   time.Time
	now             func() time.Time
	mu              sync.RWMutex
}

// Config holds circuit breaker configuration
type Config struct {
	Name            string           // Provider name, used in logs and events
	Threshold       int              // Consecutive failures before opening
	Cooldown        time.Duration    // How long to stay open before probing
	HalfOpenTimeout time.Duration    // Max wait for the probe before reopening
	Now             func() time.Time // Clock, defaults to time.Now
}

func (cfg Config) withDefaults() Config {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	cfg = cfg.withDefaults()
	return &CircuitBreaker{
		name:            cfg.Name,
		state:           StateClosed,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		now:             cfg.Now,
	}
}

// Name returns the guarded provider name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a request may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	switch cb.state {
	case StateOpen:
		if now.Sub(cb.lastFailureTime) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.halfOpenStart = now
			log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", logcolors.CircuitBreakerPrefix(cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		if now.Sub(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.lastFailureTime = now
			log.Warnf("%s Half-open probe timed out, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
		}
		// Only the first probe is allowed through
		return false

	default:
		return true
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		log.Infof("%s Probe succeeded, transitioning to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
		notifier.PublishCircuitBreakerRecovered(cb.name)
	case StateClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		log.Warnf("%s Probe failed, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
		notifier.PublishCircuitBreakerOpen(cb.name, cb.failures, cb.cooldown)

	case StateClosed:
		// Warn at 60% of the threshold
		warningThreshold := max((cb.threshold*3)/5, 2)
		if cb.failures == warningThreshold && warningThreshold < cb.threshold {
			notifier.PublishHighFailureRate(cb.name, cb.failures, cb.threshold)
		}

		if cb.failures >= cb.threshold {
			cb.state = StateOpen
			log.Warnf("%s Threshold reached (%d failures), transitioning to OPEN (cooldown: %v)",
				logcolors.CircuitBreakerPrefix(cb.name), cb.failures, cb.cooldown)
			notifier.PublishCircuitBreakerOpen(cb.name, cb.failures, cb.cooldown)
		}
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset manually closes the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenStart = time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}

// TimeUntilRetry returns the remaining cooldown (OPEN) or probe window (HALF-OPEN)
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - cb.now().Sub(cb.lastFailureTime)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - cb.now().Sub(cb.halfOpenStart)
	}
	return max(remaining, 0)
}

// Status is a point-in-time view of a breaker
type Status struct {
	State          string    `json:"state"`
	Failures       int       `json:"failures"`
	Threshold      int       `json:"threshold"`
	LastFailure    time.Time `json:"lastFailure,omitzero"`
	RetryInSeconds float64   `json:"retryInSeconds,omitempty"`
}

// Status returns the breaker's current status
func (cb *CircuitBreaker) Status() Status {
	retry := cb.TimeUntilRetry()

	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return Status{
		State:          cb.state.String(),
		Failures:       cb.failures,
		Threshold:      cb.threshold,
		LastFailure:    cb.lastFailureTime,
		RetryInSeconds: retry.Seconds(),
	}
}
