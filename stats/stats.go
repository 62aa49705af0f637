package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ProviderCounts are the outcome counters of one provider
type ProviderCounts struct {
	Success  int64 `json:"success"`
	NotFound int64 `json:"not_found"`
	Failed   int64 `json:"failed"`
	Skipped  int64 `json:"skipped"`
}

type providerCounters struct {
	success  atomic.Int64
	notFound atomic.Int64
	failed   atomic.Int64
	skipped  atomic.Int64
}

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests   atomic.Int64
	ResolveRequests atomic.Int64
	VerifyRequests  atomic.Int64
	CacheRequests   atomic.Int64
	StatsRequests   atomic.Int64
	HealthRequests  atomic.Int64
	OtherRequests   atomic.Int64

	// Resolution outcomes
	Resolutions       atomic.Int64
	NotFound          atomic.Int64
	Merges            atomic.Int64
	LowConfidence     atomic.Int64
	Verified          atomic.Int64
	Unverified        atomic.Int64
	SharedResolutions atomic.Int64 // Callers that joined an in-flight resolution

	// Cache performance
	FastCacheHits     atomic.Int64
	DurableCacheHits  atomic.Int64
	CacheMisses       atomic.Int64
	NegativeCacheHits atomic.Int64
	DurableFailures   atomic.Int64

	// Rate limiting
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Resolve endpoint response times (microseconds)
	resolveResponseTime  atomic.Int64
	resolveResponseCount atomic.Int64

	// Provider name -> *providerCounters
	providers sync.Map
}

const noResponseTime = int64(^uint64(0) >> 1) // Max int64

// New returns an empty Stats starting now
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(noResponseTime)
	return s
}

// Global stats instance
var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/resolve":
		s.ResolveRequests.Add(1)
	case "/verify":
		s.VerifyRequests.Add(1)
	case "/cache":
		s.CacheRequests.Add(1)
	case "/stats":
		s.StatsRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit on the named tier ("fast" or "durable")
func (s *Stats) RecordCacheHit(tier string) {
	switch tier {
	case "fast":
		s.FastCacheHits.Add(1)
	case "durable":
		s.DurableCacheHits.Add(1)
	}
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordNegativeCacheHit records a negative cache hit
func (s *Stats) RecordNegativeCacheHit() {
	s.NegativeCacheHits.Add(1)
}

// RecordDurableFailure records a durable tier read or write error
func (s *Stats) RecordDurableFailure() {
	s.DurableFailures.Add(1)
}

// RecordResolution records the outcome of one fan-out resolution
func (s *Stats) RecordResolution(found, merged, lowConfidence bool) {
	if !found {
		s.NotFound.Add(1)
		return
	}
	s.Resolutions.Add(1)
	if merged {
		s.Merges.Add(1)
	}
	if lowConfidence {
		s.LowConfidence.Add(1)
	}
}

// RecordVerification records a verification chain outcome
func (s *Stats) RecordVerification(verified bool) {
	if verified {
		s.Verified.Add(1)
	} else {
		s.Unverified.Add(1)
	}
}

// RecordSharedResolution records a caller served by another caller's fan-out
func (s *Stats) RecordSharedResolution() {
	s.SharedResolutions.Add(1)
}

func (s *Stats) provider(name string) *providerCounters {
	if v, ok := s.providers.Load(name); ok {
		return v.(*providerCounters)
	}
	v, _ := s.providers.LoadOrStore(name, &providerCounters{})
	return v.(*providerCounters)
}

// RecordProviderOutcome records one provider call. outcome is "success",
// "not_found", "skipped" or anything else for a failure.
func (s *Stats) RecordProviderOutcome(name, outcome string) {
	c := s.provider(name)
	switch outcome {
	case "success":
		c.success.Add(1)
	case "not_found":
		c.notFound.Add(1)
	case "skipped":
		c.skipped.Add(1)
	default:
		c.failed.Add(1)
	}
}

// ProviderSnapshot returns the outcome counters of every provider seen so far
func (s *Stats) ProviderSnapshot() map[string]ProviderCounts {
	out := make(map[string]ProviderCounts)
	s.providers.Range(func(key, value any) bool {
		c := value.(*providerCounters)
		out[key.(string)] = ProviderCounts{
			Success:  c.success.Load(),
			NotFound: c.notFound.Load(),
			Failed:   c.failed.Load(),
			Skipped:  c.skipped.Load(),
		}
		return true
	})
	return out
}

// ProviderNames returns the sorted names of providers with recorded outcomes
func (s *Stats) ProviderNames() []string {
	var names []string
	s.providers.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

func (s *Stats) restoreProvider(name string, counts ProviderCounts) {
	c := s.provider(name)
	c.success.Store(counts.Success)
	c.notFound.Store(counts.NotFound)
	c.failed.Store(counts.Failed)
	c.skipped.Store(counts.Skipped)
}

// RecordRateLimitExceeded records a request rejected by the rate limiter
func (s *Stats) RecordRateLimitExceeded() {
	s.RateLimitExceeded.Add(1)
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, endpoint string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	// Update min/max atomically
	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if endpoint == "/resolve" {
		s.resolveResponseTime.Add(us)
		s.resolveResponseCount.Add(1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the share of lookups answered by either tier, as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.FastCacheHits.Load() + s.DurableCacheHits.Load() + s.NegativeCacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noResponseTime {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgResolveResponseTime returns the average response time for resolve requests
func (s *Stats) AvgResolveResponseTime() time.Duration {
	count := s.resolveResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.resolveResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":   s.TotalRequests.Load(),
			"resolve": s.ResolveRequests.Load(),
			"verify":  s.VerifyRequests.Load(),
			"cache":   s.CacheRequests.Load(),
			"stats":   s.StatsRequests.Load(),
			"health":  s.HealthRequests.Load(),
			"other":   s.OtherRequests.Load(),
		},
		"resolutions": map[string]interface{}{
			"found":          s.Resolutions.Load(),
			"not_found":      s.NotFound.Load(),
			"merged":         s.Merges.Load(),
			"low_confidence": s.LowConfidence.Load(),
			"verified":       s.Verified.Load(),
			"unverified":     s.Unverified.Load(),
			"shared":         s.SharedResolutions.Load(),
		},
		"cache": map[string]interface{}{
			"fast_hits":        s.FastCacheHits.Load(),
			"durable_hits":     s.DurableCacheHits.Load(),
			"misses":           s.CacheMisses.Load(),
			"negative_hits":    s.NegativeCacheHits.Load(),
			"durable_failures": s.DurableFailures.Load(),
			"hit_rate":         s.CacheHitRate(),
		},
		"providers": s.ProviderSnapshot(),
		"rate_limiting": map[string]interface{}{
			"exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":         s.AvgResponseTime().String(),
			"min":         s.MinResponseTime().String(),
			"max":         s.MaxResponseTime().String(),
			"avg_resolve": s.AvgResolveResponseTime().String(),
		},
	}
}
