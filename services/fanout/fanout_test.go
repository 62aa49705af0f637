package fanout

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lyrics-resolver-go/circuitbreaker"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/stats"
)

var testQuery = providers.Query{Artist: "Unknown Artist XYZ", Title: "Nonexistent Song"}

// fakeProvider runs fetch when set, otherwise returns lyrics or err
type fakeProvider struct {
	name         string
	lyrics       string
	err          error
	unconfigured bool
	timeout      time.Duration
	fetch        func(ctx context.Context) (*providers.Candidate, error)
	calls        atomic.Int32
}

func (f *fakeProvider) Name() string           { return f.name }
func (f *fakeProvider) Configured() bool       { return !f.unconfigured }
func (f *fakeProvider) Timeout() time.Duration { return f.timeout }
func (f *fakeProvider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	f.calls.Add(1)
	if f.fetch != nil {
		return f.fetch(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Candidate{Lyrics: f.lyrics, Source: f.name}, nil
}

func notFound(name string) error {
	return providers.NewProviderError(name, providers.ReasonNotFound, "no match", nil)
}

func byProvider(outcomes []Outcome) map[string]Outcome {
	m := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Provider] = o
	}
	return m
}

func newCoordinator(opts Options, ps ...providers.Provider) *Coordinator {
	if opts.Stats == nil {
		opts.Stats = stats.New()
	}
	return New(ps, opts)
}

func TestResolveRaw_WaitsForAll(t *testing.T) {
	fast := &fakeProvider{name: "fast", lyrics: "fast lyrics"}
	slow := &fakeProvider{name: "slow", fetch: func(ctx context.Context) (*providers.Candidate, error) {
		time.Sleep(50 * time.Millisecond)
		return &providers.Candidate{Lyrics: "slow but complete lyrics", Source: "slow"}, nil
	}}
	missing := &fakeProvider{name: "missing", err: notFound("missing")}

	outcomes := newCoordinator(Options{}, fast, slow, missing).ResolveRaw(context.Background(), testQuery)
	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}

	got := byProvider(outcomes)
	if !got["fast"].OK() || !got["slow"].OK() {
		t.Error("Expected both fast and slow candidates")
	}
	if got["missing"].Reason() != "not_found" {
		t.Errorf("missing reason = %s", got["missing"].Reason())
	}
	if n := len(Candidates(outcomes)); n != 2 {
		t.Errorf("Candidates() = %d, want 2", n)
	}
	if f := Failures(outcomes); len(f) != 1 || f["missing"] != "not_found" {
		t.Errorf("Failures() = %v", f)
	}
}

func TestResolveRaw_RecoversPanics(t *testing.T) {
	bad := &fakeProvider{name: "bad", fetch: func(ctx context.Context) (*providers.Candidate, error) {
		panic("boom")
	}}
	good := &fakeProvider{name: "good", lyrics: "la la la"}

	got := byProvider(newCoordinator(Options{}, bad, good).ResolveRaw(context.Background(), testQuery))
	if got["bad"].Reason() != string(providers.ReasonPanic) {
		t.Errorf("bad reason = %s, want panic", got["bad"].Reason())
	}
	if !got["good"].OK() {
		t.Error("A panicking provider must not affect the others")
	}
}

func TestResolveRaw_NormalizesErrors(t *testing.T) {
	tests := []struct {
		name  string
		fetch func(ctx context.Context) (*providers.Candidate, error)
		want  providers.Reason
	}{
		{
			name:  "plain error becomes network",
			fetch: func(ctx context.Context) (*providers.Candidate, error) { return nil, errors.New("connection reset") },
			want:  providers.ReasonNetwork,
		},
		{
			name:  "nil candidate becomes empty",
			fetch: func(ctx context.Context) (*providers.Candidate, error) { return nil, nil },
			want:  providers.ReasonEmpty,
		},
		{
			name: "provider timeout",
			fetch: func(ctx context.Context) (*providers.Candidate, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			want: providers.ReasonTimeout,
		},
		{
			name: "typed error kept",
			fetch: func(ctx context.Context) (*providers.Candidate, error) {
				return nil, providers.NewProviderError("p", providers.ReasonRateLimited, "429", nil)
			},
			want: providers.ReasonRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{name: "p", fetch: tt.fetch, timeout: 20 * time.Millisecond}
			outcomes := newCoordinator(Options{}, p).ResolveRaw(context.Background(), testQuery)
			if len(outcomes) != 1 {
				t.Fatalf("Expected 1 outcome, got %d", len(outcomes))
			}
			if got := providers.ReasonOf(outcomes[0].Err); got != tt.want {
				t.Errorf("reason = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveRaw_AbandonsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stuck := &fakeProvider{name: "stuck", timeout: time.Minute, fetch: func(ctx context.Context) (*providers.Candidate, error) {
		<-release // ignores ctx on purpose
		return &providers.Candidate{Lyrics: "too late", Source: "stuck"}, nil
	}}
	quick := &fakeProvider{name: "quick", lyrics: "on time"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcomes := newCoordinator(Options{}, stuck, quick).ResolveRaw(ctx, testQuery)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("ResolveRaw waited %v for an abandoned provider", elapsed)
	}

	got := byProvider(outcomes)
	if !got["quick"].OK() {
		t.Error("Expected the settled candidate to be kept")
	}
	if got["stuck"].OK() || got["stuck"].Reason() != string(providers.ReasonTimeout) {
		t.Errorf("stuck outcome = %+v, want abandoned timeout", got["stuck"])
	}
}

func TestResolveRaw_SkipsUnconfigured(t *testing.T) {
	off := &fakeProvider{name: "off", lyrics: "x", unconfigured: true}
	on := &fakeProvider{name: "on", lyrics: "y"}

	c := newCoordinator(Options{}, off, on)
	outcomes := c.ResolveRaw(context.Background(), testQuery)
	if len(outcomes) != 1 || outcomes[0].Provider != "on" {
		t.Errorf("Expected only the configured provider, got %+v", outcomes)
	}
	if off.calls.Load() != 0 {
		t.Error("Unconfigured provider must not be called")
	}
	if names := c.Providers(); len(names) != 1 || names[0] != "on" {
		t.Errorf("Providers() = %v", names)
	}
}

func TestResolveRaw_NoProviders(t *testing.T) {
	if outcomes := newCoordinator(Options{}).ResolveRaw(context.Background(), testQuery); len(outcomes) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outcomes))
	}
}

func TestResolveRaw_CircuitBreaker(t *testing.T) {
	breakers := circuitbreaker.NewGroup(circuitbreaker.Config{Threshold: 2, Cooldown: time.Hour})
	failing := &fakeProvider{name: "failing", err: errors.New("503")}
	c := newCoordinator(Options{Breakers: breakers}, failing)

	for i := 0; i < 2; i++ {
		c.ResolveRaw(context.Background(), testQuery)
	}
	if breakers.For("failing").State() != circuitbreaker.StateOpen {
		t.Fatalf("Expected open breaker, got %s", breakers.For("failing").State())
	}

	outcomes := c.ResolveRaw(context.Background(), testQuery)
	if outcomes[0].Reason() != string(providers.ReasonCircuitOpen) {
		t.Errorf("reason = %s, want circuit_open", outcomes[0].Reason())
	}
	if failing.calls.Load() != 2 {
		t.Errorf("Provider called %d times, want 2", failing.calls.Load())
	}
}

func TestResolveRaw_NotFoundKeepsBreakerClosed(t *testing.T) {
	breakers := circuitbreaker.NewGroup(circuitbreaker.Config{Threshold: 1, Cooldown: time.Hour})
	p := &fakeProvider{name: "p", err: notFound("p")}
	c := newCoordinator(Options{Breakers: breakers}, p)

	for i := 0; i < 3; i++ {
		c.ResolveRaw(context.Background(), testQuery)
	}
	if breakers.For("p").State() != circuitbreaker.StateClosed {
		t.Error("Not-found answers must not trip the breaker")
	}
}

func TestResolveRaw_RecordsStats(t *testing.T) {
	st := stats.New()
	c := newCoordinator(Options{Stats: st},
		&fakeProvider{name: "a", lyrics: "x"},
		&fakeProvider{name: "b", err: notFound("b")},
		&fakeProvider{name: "c", err: errors.New("down")},
	)
	c.ResolveRaw(context.Background(), testQuery)

	snap := st.ProviderSnapshot()
	if snap["a"].Success != 1 || snap["b"].NotFound != 1 || snap["c"].Failed != 1 {
		t.Errorf("Unexpected provider stats %+v", snap)
	}
}

func TestResolveRaw_AllFailedPublishesEvent(t *testing.T) {
	events := make(chan *notifier.Event, 4)
	notifier.GetEventBus().Subscribe(notifier.EventAllProvidersFailed, func(e *notifier.Event) {
		if q, _ := e.Data["query"].(string); strings.Contains(q, "all-failed-song") {
			events <- e
		}
	})

	q := providers.Query{Artist: "x", Title: "all-failed-song"}
	newCoordinator(Options{},
		&fakeProvider{name: "a", err: errors.New("down")},
		&fakeProvider{name: "b", err: errors.New("down")},
	).ResolveRaw(context.Background(), q)

	select {
	case e := <-events:
		reasons, _ := e.Data["reasons"].(map[string]string)
		if reasons["a"] != "network" || reasons["b"] != "network" {
			t.Errorf("Unexpected reasons %v", reasons)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected an all-providers-failed event")
	}
}

func TestResolveRaw_EmptyProvidersScenario(t *testing.T) {
	c := newCoordinator(Options{},
		&fakeProvider{name: "lrclib", err: notFound("lrclib")},
		&fakeProvider{name: "ovh", err: notFound("ovh")},
	)
	outcomes := c.ResolveRaw(context.Background(), testQuery)
	if len(Candidates(outcomes)) != 0 {
		t.Error("Expected no candidates when every provider fails")
	}
}
