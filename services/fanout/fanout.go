// Package fanout queries every configured provider concurrently and waits for
// all of them to settle.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"lyrics-resolver-go/circuitbreaker"
	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/stats"

	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a provider call when the provider declares no timeout
const DefaultTimeout = 10 * time.Second

// Outcome is the settled result of one provider call
type Outcome struct {
	Provider  string
	Candidate *providers.Candidate
	Err       error
	Duration  time.Duration
}

// OK reports whether the call produced a candidate
func (o Outcome) OK() bool {
	return o.Err == nil && o.Candidate != nil
}

// Reason is the failure reason, or "success"
func (o Outcome) Reason() string {
	if o.OK() {
		return "success"
	}
	return string(providers.ReasonOf(o.Err))
}

// Options configure a Coordinator
type Options struct {
	// DefaultTimeout applies to providers that do not implement providers.TimeoutProvider
	DefaultTimeout time.Duration

	// Breakers, when set, skip providers whose circuit is open
	Breakers *circuitbreaker.Group

	// Stats receives per-provider outcomes; nil uses the global stats
	Stats *stats.Stats
}

// Coordinator runs provider fan-outs
type Coordinator struct {
	providers      []providers.Provider
	defaultTimeout time.Duration
	breakers       *circuitbreaker.Group
	stats          *stats.Stats
}

// New creates a Coordinator over ps. Providers that are not configured at
// call time are left out of the fan-out.
func New(ps []providers.Provider, opts Options) *Coordinator {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}
	return &Coordinator{
		providers:      ps,
		defaultTimeout: opts.DefaultTimeout,
		breakers:       opts.Breakers,
		stats:          opts.Stats,
	}
}

// Providers returns the names of the providers a fan-out would call now
func (c *Coordinator) Providers() []string {
	var names []string
	for _, p := range c.providers {
		if p.Configured() {
			names = append(names, p.Name())
		}
	}
	return names
}

// ResolveRaw calls every configured provider concurrently and returns one
// outcome per provider once all have settled. When ctx ends first, calls
// still in flight are abandoned and reported as timeouts; their late results
// are dropped.
func (c *Coordinator) ResolveRaw(ctx context.Context, q providers.Query) []Outcome {
	var active []providers.Provider
	for _, p := range c.providers {
		if p.Configured() {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		log.Warnf("%s No configured providers for %s", logcolors.LogFanout, q)
		return nil
	}

	start := time.Now()
	results := make(chan Outcome, len(active)) // buffered so abandoned calls never block
	for _, p := range active {
		go func(p providers.Provider) {
			results <- c.call(ctx, p, q)
		}(p)
	}

	settled := make(map[string]bool, len(active))
	outcomes := make([]Outcome, 0, len(active))

collect:
	for len(outcomes) < len(active) {
		select {
		case o := <-results:
			settled[o.Provider] = true
			outcomes = append(outcomes, o)
		case <-ctx.Done():
			break collect
		}
	}

	for _, p := range active {
		if settled[p.Name()] {
			continue
		}
		log.Warnf("%s %s abandoned after %v: %v", logcolors.LogFanout, p.Name(), time.Since(start).Round(time.Millisecond), ctx.Err())
		outcomes = append(outcomes, Outcome{
			Provider: p.Name(),
			Err:      providers.NewProviderError(p.Name(), providers.ReasonTimeout, "abandoned at resolution deadline", ctx.Err()),
			Duration: time.Since(start),
		})
	}

	c.report(q, outcomes, time.Since(start))
	return outcomes
}

// call runs one provider with its own timeout, breaker and panic guard
func (c *Coordinator) call(ctx context.Context, p providers.Provider, q providers.Query) (out Outcome) {
	name := p.Name()
	start := time.Now()
	out.Provider = name

	var cb *circuitbreaker.CircuitBreaker
	if c.breakers != nil {
		cb = c.breakers.For(name)
		if !cb.Allow() {
			out.Err = providers.NewProviderError(name, providers.ReasonCircuitOpen,
				fmt.Sprintf("skipped, retry in %v", cb.TimeUntilRetry().Round(time.Second)), circuitbreaker.ErrCircuitOpen)
			c.stats.RecordProviderOutcome(name, "skipped")
			return out
		}
	}

	timeout := c.defaultTimeout
	if tp, ok := p.(providers.TimeoutProvider); ok && tp.Timeout() > 0 {
		timeout = tp.Timeout()
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s panic: %v\n%s", logcolors.Provider(name), r, debug.Stack())
			out.Candidate = nil
			out.Err = providers.NewProviderError(name, providers.ReasonPanic, fmt.Sprint(r), nil)
		}
		out.Duration = time.Since(start)
		c.record(ctx, cb, out)
	}()

	candidate, err := p.Fetch(callCtx, q)
	switch {
	case err != nil:
		out.Err = normalizeError(name, err, callCtx)
	case candidate == nil || candidate.Lyrics == "":
		out.Err = providers.NewProviderError(name, providers.ReasonEmpty, "no lyrics returned", nil)
	default:
		out.Candidate = candidate
	}
	return out
}

// normalizeError makes sure every failure is a *ProviderError with a reason
func normalizeError(name string, err error, callCtx context.Context) error {
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return providers.NewProviderError(name, providers.ReasonTimeout, "request timed out", err)
	}
	return providers.NewProviderError(name, providers.ReasonNetwork, "request failed", err)
}

// record feeds the breaker and stats. Calls cut short by the caller's own
// deadline say nothing about provider health and leave the breaker alone.
func (c *Coordinator) record(parent context.Context, cb *circuitbreaker.CircuitBreaker, o Outcome) {
	outcome := o.Reason()
	if providers.IsNotFound(o.Err) {
		outcome = "not_found"
	}
	c.stats.RecordProviderOutcome(o.Provider, outcome)

	switch {
	case o.OK():
		log.Infof("%s Candidate in %v (%d chars)", logcolors.Provider(o.Provider), o.Duration.Round(time.Millisecond), len([]rune(o.Candidate.Lyrics)))
	case providers.IsNotFound(o.Err):
		log.Debugf("%s %v", logcolors.Provider(o.Provider), o.Err)
	default:
		log.Warnf("%s %s: %v", logcolors.Provider(o.Provider), providers.ReasonOf(o.Err), o.Err)
	}

	if cb == nil || parent.Err() != nil {
		return
	}
	if o.OK() || providers.IsNotFound(o.Err) {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure()
	}
}

// report logs the fan-out summary and raises an alert when every provider
// failed for reasons other than simply not knowing the song
func (c *Coordinator) report(q providers.Query, outcomes []Outcome, elapsed time.Duration) {
	found := 0
	reasons := make(map[string]string, len(outcomes))
	allFailed := len(outcomes) > 0
	for _, o := range outcomes {
		reasons[o.Provider] = o.Reason()
		if o.OK() {
			found++
			allFailed = false
		} else if providers.IsNotFound(o.Err) {
			allFailed = false
		}
	}

	log.Infof("%s %s: %d/%d providers returned candidates in %v",
		logcolors.LogFanout, q, found, len(outcomes), elapsed.Round(time.Millisecond))

	if allFailed {
		log.Errorf("%s Every provider failed for %s: %v", logcolors.LogFanout, q, reasons)
		notifier.PublishAllProvidersFailed(q.String(), reasons)
	}
}

// Candidates returns the candidates of the successful outcomes
func Candidates(outcomes []Outcome) []providers.Candidate {
	var out []providers.Candidate
	for _, o := range outcomes {
		if o.OK() {
			out = append(out, *o.Candidate)
		}
	}
	return out
}

// Failures maps provider name to failure reason for the failed outcomes
func Failures(outcomes []Outcome) map[string]string {
	out := make(map[string]string)
	for _, o := range outcomes {
		if !o.OK() {
			out[o.Provider] = o.Reason()
		}
	}
	return out
}
