package cache

import (
	"encoding/json"
	"errors"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/stats"

	log "github.com/sirupsen/logrus"
)

// NegativePrefix marks durable keys that remember a "no lyrics" answer
const NegativePrefix = "no_lyrics:"

// Durable is the external keyed store behind the fast tier
type Durable interface {
	Get(key string) (string, error)
	Put(key, value string, ttl time.Duration) error
	Delete(key string) error
}

// LayerOptions configure a Layer
type LayerOptions struct {
	FastCapacity int
	FastTTL      time.Duration
	DurableTTL   time.Duration
	NegativeTTL  time.Duration

	// Durable may be nil, in which case only the fast tier is used
	Durable Durable

	Now   func() time.Time
	Stats *stats.Stats
}

// Layer is the two-tier resolution cache. Durable tier failures are logged
// and reported but never fail a lookup or a store.
type Layer struct {
	fast        *LRU[providers.ResolutionResult]
	negative    *LRU[struct{}]
	durable     Durable
	durableTTL  time.Duration
	negativeTTL time.Duration
	stats       *stats.Stats
}

// NewLayer creates a Layer, applying defaults for zero options
func NewLayer(opts LayerOptions) *Layer {
	if opts.FastCapacity <= 0 {
		opts.FastCapacity = 200
	}
	if opts.FastTTL <= 0 {
		opts.FastTTL = 10 * time.Minute
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = 6 * time.Hour
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}

	return &Layer{
		fast:        NewLRU[providers.ResolutionResult](opts.FastCapacity, opts.FastTTL, opts.Now),
		negative:    NewLRU[struct{}](opts.FastCapacity, min(opts.FastTTL, opts.NegativeTTL), opts.Now),
		durable:     opts.Durable,
		durableTTL:  opts.DurableTTL,
		negativeTTL: opts.NegativeTTL,
		stats:       opts.Stats,
	}
}

// Get looks the query up in the fast tier, then the durable tier. A durable
// hit is promoted into the fast tier.
func (l *Layer) Get(q providers.Query) (providers.ResolutionResult, bool) {
	key := q.Key()

	if res, ok := l.fast.Get(key); ok {
		log.Debugf("%s Hit for %s", logcolors.LogCacheFast, key)
		l.stats.RecordCacheHit("fast")
		return res, true
	}

	if l.durable != nil {
		raw, err := l.durable.Get(key)
		switch {
		case err == nil:
			var res providers.ResolutionResult
			if err := json.Unmarshal([]byte(raw), &res); err != nil {
				log.Warnf("%s Dropping undecodable entry %s: %v", logcolors.LogCacheDurable, key, err)
				l.durableFailure("delete", l.durable.Delete(key))
				break
			}
			log.Debugf("%s Hit for %s, promoting", logcolors.LogCacheDurable, key)
			l.fast.Put(key, res)
			l.stats.RecordCacheHit("durable")
			return res, true
		case !errors.Is(err, ErrKeyNotFound):
			l.durableFailure("get", err)
		}
	}

	l.stats.RecordCacheMiss()
	return providers.ResolutionResult{}, false
}

// Put writes res to both tiers and clears any "no lyrics" marker for the query
func (l *Layer) Put(q providers.Query, res providers.ResolutionResult) {
	key := q.Key()
	l.fast.Put(key, res)
	l.negative.Delete(key)

	if l.durable == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		log.Errorf("%s Failed to encode result for %s: %v", logcolors.LogCache, key, err)
		return
	}
	l.durableFailure("put", l.durable.Put(key, string(data), l.durableTTL))
	l.durableFailure("delete", l.durable.Delete(NegativePrefix+key))
}

// IsNegative reports whether the query was recently resolved as "no lyrics"
func (l *Layer) IsNegative(q providers.Query) bool {
	key := q.Key()
	if l.negative.Has(key) {
		l.stats.RecordNegativeCacheHit()
		return true
	}
	if l.durable == nil {
		return false
	}

	_, err := l.durable.Get(NegativePrefix + key)
	switch {
	case err == nil:
		l.negative.Put(key, struct{}{})
		l.stats.RecordNegativeCacheHit()
		return true
	case !errors.Is(err, ErrKeyNotFound):
		l.durableFailure("get", err)
	}
	return false
}

// PutNegative remembers that the query has no lyrics
func (l *Layer) PutNegative(q providers.Query) {
	key := q.Key()
	l.negative.Put(key, struct{}{})
	log.Debugf("%s Remembering no lyrics for %s", logcolors.LogCacheNegative, key)
	if l.durable != nil {
		value := time.Now().UTC().Format(time.RFC3339)
		l.durableFailure("put", l.durable.Put(NegativePrefix+key, value, l.negativeTTL))
	}
}

// Invalidate drops the query from both tiers, including its negative marker
func (l *Layer) Invalidate(q providers.Query) {
	key := q.Key()
	l.fast.Delete(key)
	l.negative.Delete(key)
	if l.durable != nil {
		l.durableFailure("delete", l.durable.Delete(key))
		l.durableFailure("delete", l.durable.Delete(NegativePrefix+key))
	}
}

// ClearFast empties the in-memory tiers
func (l *Layer) ClearFast() {
	l.fast.Clear()
	l.negative.Clear()
	log.Infof("%s Fast tier cleared", logcolors.LogCacheFast)
}

// FastLen returns the number of entries in the fast tier
func (l *Layer) FastLen() int {
	return l.fast.Len()
}

func (l *Layer) durableFailure(op string, err error) {
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		return
	}
	log.Warnf("%s %s failed, continuing without durable tier: %v", logcolors.LogCacheDurable, op, err)
	l.stats.RecordDurableFailure()
	notifier.PublishDurableCacheFailure(op, err)
}
