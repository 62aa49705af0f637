// Package resolver is the single entry point of the lyrics engine:
// cache, fan-out, selection, storage and optional verification.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lyrics-resolver-go/cache"
	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/fanout"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/selector"
	"lyrics-resolver-go/services/verify"
	"lyrics-resolver-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound means no provider has lyrics for the query
	ErrNotFound = errors.New("no lyrics found")

	// ErrInvalidQuery is returned for queries without a title
	ErrInvalidQuery = errors.New("query needs a title")

	// ErrCacheOnlyMiss is returned in cache-only mode when nothing is cached
	ErrCacheOnlyMiss = errors.New("no cached lyrics and fresh resolution not allowed")
)

const (
	// DefaultTimeout bounds a whole fan-out when no timeout is configured
	DefaultTimeout = 45 * time.Second

	// maxSelectReserve caps the share of a caller's deadline kept back from
	// the fan-out for selection and storage
	maxSelectReserve = 250 * time.Millisecond
)

// Fanout is the provider fan-out the engine resolves through
type Fanout interface {
	ResolveRaw(ctx context.Context, q providers.Query) []fanout.Outcome
}

// Cache is the resolution cache
type Cache interface {
	Get(q providers.Query) (providers.ResolutionResult, bool)
	Put(q providers.Query, res providers.ResolutionResult)
	IsNegative(q providers.Query) bool
	PutNegative(q providers.Query)
}

// Options wire an Engine. Only Fanout is required.
type Options struct {
	Fanout   Fanout
	Selector *selector.Selector
	Cache    Cache
	Chain    *verify.Chain

	// Timeout bounds one fan-out. A caller's earlier deadline bounds it further.
	Timeout time.Duration

	Stats *stats.Stats
	Now   func() time.Time
}

// ResolveOptions tune a single resolution
type ResolveOptions struct {
	// Refresh bypasses both the cache and the "no lyrics" memory
	Refresh bool

	// Verify runs the verification chain on the result
	Verify bool

	// CacheOnly answers from the cache and never fans out
	CacheOnly bool
}

// Engine resolves queries to lyrics
type Engine struct {
	fanout   Fanout
	selector *selector.Selector
	cache    Cache
	chain    *verify.Chain
	timeout  time.Duration
	stats    *stats.Stats
	now      func() time.Time
	inflight singleflight.Group
}

// New creates an Engine, filling unset options with defaults
func New(opts Options) *Engine {
	if opts.Selector == nil {
		opts.Selector = selector.New(selector.Options{})
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewLayer(cache.LayerOptions{Stats: opts.Stats})
	}
	if opts.Chain == nil {
		opts.Chain = verify.NewChain(0)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		fanout:   opts.Fanout,
		selector: opts.Selector,
		cache:    opts.Cache,
		chain:    opts.Chain,
		timeout:  opts.Timeout,
		stats:    opts.Stats,
		now:      opts.Now,
	}
}

// Resolve returns the best transcript for q. It returns ErrNotFound when no
// provider has lyrics; a low-confidence result is still a result. When ctx
// carries a deadline, providers still running at that point are abandoned and
// the answer is built from those that finished.
func (e *Engine) Resolve(ctx context.Context, q providers.Query, opts ResolveOptions) (*providers.ResolutionResult, error) {
	if q.IsEmpty() {
		return nil, ErrInvalidQuery
	}

	if !opts.Refresh {
		if res, ok := e.cache.Get(q); ok {
			log.Infof("%s Cache hit for %s (source: %s)", logcolors.LogResolve, q, res.Source)
			res.Metadata = copyMetadata(res.Metadata)
			if opts.Verify && res.Verification == nil {
				e.attachVerification(ctx, q, &res)
				e.cache.Put(q, res)
			}
			return &res, nil
		}
		if e.cache.IsNegative(q) {
			log.Infof("%s %s No lyrics remembered for %s", logcolors.LogResolve, logcolors.LogNotFound, q)
			return nil, ErrNotFound
		}
	}
	if opts.CacheOnly {
		return nil, ErrCacheOnlyMiss
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shared, err := e.flight(ctx, q)
	if err != nil {
		return nil, err
	}

	// Callers sharing a flight get their own copy to mutate
	res := *shared
	res.Metadata = copyMetadata(res.Metadata)
	if opts.Verify {
		e.attachVerification(ctx, q, &res)
		e.cache.Put(q, res)
	}
	return &res, nil
}

// flight joins or starts the fan-out for q. Concurrent callers share one
// fan-out whatever their options; each caller still leaves when its own
// context ends.
func (e *Engine) flight(ctx context.Context, q providers.Query) (*providers.ResolutionResult, error) {
	ch := e.inflight.DoChan(q.Key(), func() (any, error) {
		return e.resolve(ctx, q)
	})

	select {
	case r := <-ch:
		if r.Shared {
			e.stats.RecordSharedResolution()
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*providers.ResolutionResult), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("resolving %s: %w", q, ctx.Err())
	}
}

// resolve runs one fan-out. It is detached from the caller's cancellation so
// that callers joining the flight are not cut short by the first caller
// leaving, but it honours the first caller's deadline.
func (e *Engine) resolve(ctx context.Context, q providers.Query) (*providers.ResolutionResult, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.fanoutBudget(ctx))
	defer cancel()

	start := e.now()
	outcomes := e.fanout.ResolveRaw(fctx, q)
	candidates := fanout.Candidates(outcomes)

	sel, err := e.selector.Select(candidates)
	if errors.Is(err, selector.ErrNoCandidates) {
		e.stats.RecordResolution(false, false, false)
		if onlyNotFound(outcomes) {
			e.cache.PutNegative(q)
		}
		log.Infof("%s %s %s (failures: %v)", logcolors.LogResolve, logcolors.LogNotFound, q, fanout.Failures(outcomes))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	best := sel.Best
	res := &providers.ResolutionResult{
		Lyrics:            best.Candidate.Lyrics,
		Source:            best.Candidate.Source,
		Confidence:        best.Candidate.Confidence,
		HasTimestamps:     best.Candidate.HasTimestamps,
		Metadata:          best.Candidate.MetadataCopy(),
		Merged:            sel.Merged,
		Sources:           sel.Sources,
		CompletenessScore: best.Completeness,
		LowConfidence:     best.Completeness < e.selector.GoodEnough(),
		ResolvedAt:        e.now().UTC(),
	}

	e.cache.Put(q, *res)
	e.stats.RecordResolution(true, res.Merged, res.LowConfidence)

	log.Infof("%s %s %s from %s (completeness: %d, merged: %v, candidates: %d/%d) in %v",
		logcolors.LogResolve, logcolors.LogSuccess, q, res.Source, res.CompletenessScore, res.Merged,
		len(candidates), len(outcomes), e.now().Sub(start).Round(time.Millisecond))
	return res, nil
}

// fanoutBudget is the engine timeout, shortened to fit the caller's deadline
// less a reserve for selection
func (e *Engine) fanoutBudget(ctx context.Context) time.Duration {
	budget := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		remaining -= min(remaining/10, maxSelectReserve)
		budget = min(budget, remaining)
	}
	return budget
}

// Verify runs the verification chain on a transcript obtained elsewhere
func (e *Engine) Verify(ctx context.Context, artist, title, lyrics string) providers.Verification {
	return e.verify(ctx, verify.Request{Artist: artist, Title: title, Lyrics: lyrics})
}

func (e *Engine) verify(ctx context.Context, req verify.Request) providers.Verification {
	out := e.chain.VerifyRequest(ctx, req)
	e.stats.RecordVerification(out.Verified(e.chain.Threshold()))
	return out
}

func (e *Engine) attachVerification(ctx context.Context, q providers.Query, res *providers.ResolutionResult) {
	out := e.verify(ctx, verify.Request{Artist: q.Artist, Title: q.Title, Lyrics: res.Lyrics, Source: res.Source})
	res.Verification = &out
	if res.Metadata == nil {
		res.Metadata = make(map[string]string)
	}
	if out.Verified(e.chain.Threshold()) {
		res.Metadata["verified"] = "true"
	} else {
		delete(res.Metadata, "verified")
	}
}

// onlyNotFound reports whether every provider answered "no lyrics" rather
// than failing. Only then is the answer worth remembering.
func onlyNotFound(outcomes []fanout.Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if !providers.IsNotFound(o.Err) {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
