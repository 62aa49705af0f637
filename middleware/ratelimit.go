package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	cacheOnlyKey     contextKey = "cacheOnly"
	rateLimitTypeKey contextKey = "rateLimitType"
)

// CacheOnly reports whether the request was admitted on the cached tier and
// must be answered without a fresh resolution
func CacheOnly(ctx context.Context) bool {
	v, _ := ctx.Value(cacheOnlyKey).(bool)
	return v
}

// RateLimitType returns the tier that admitted the request ("normal", "cached", "bypass")
func RateLimitType(ctx context.Context) string {
	v, _ := ctx.Value(rateLimitTypeKey).(string)
	return v
}

// LimiterPair holds both normal and cached tier limiters for an IP
type LimiterPair struct {
	Normal *rate.Limiter
	Cached *rate.Limiter

	lastSeen time.Time
}

// GetNormalTokens returns the number of tokens available in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the number of tokens available in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per IP.
// The normal tier admits fresh resolutions; once it is exhausted the cached
// tier still admits requests that can be answered from the cache.
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          sync.Mutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
	now         func() time.Time
}

// GetNormalLimit returns the normal tier burst limit
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst limit
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
		now:         time.Now,
	}
}

// AddIP installs fresh limiters for ip, replacing any existing pair
func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.addLocked(ip)
}

func (i *IPRateLimiter) addLocked(ip string) *LimiterPair {
	pair := &LimiterPair{
		Normal:   rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached:   rate.NewLimiter(i.cachedRate, i.cachedBurst),
		lastSeen: i.now(),
	}
	i.ips[ip] = pair
	return pair
}

// GetLimiter returns the limiters for ip, creating them on first sight
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair, exists := i.ips[ip]
	if !exists {
		return i.addLocked(ip)
	}
	pair.lastSeen = i.now()
	return pair
}

// Cleanup forgets IPs not seen for longer than maxIdle and returns how many were dropped
func (i *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-maxIdle)
	dropped := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			dropped++
		}
	}
	return dropped
}

// StartCleanup runs Cleanup every interval until ctx is done
func (i *IPRateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := i.Cleanup(maxIdle); n > 0 {
					log.Debugf("%s Forgot %d idle IPs", logcolors.LogRateLimit, n)
				}
			}
		}
	}()
}

// RateLimitMiddleware admits requests through the normal tier, then the cached
// tier (marking the request cache-only), and rejects with 429 when both are
// exhausted. A request carrying bypassKey in X-API-Key skips limiting.
func RateLimitMiddleware(limiter *IPRateLimiter, bypassKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" && bypassKey != "" && key == bypassKey {
				w.Header().Set("X-RateLimit-Bypass", "true")
				ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ip := clientIP(r)
			limiters := limiter.GetLimiter(ip)

			if limiters.Normal.Allow() {
				setLimitHeaders(w, limiter.GetNormalLimit(), limiters.GetNormalTokens(), "normal")
				ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if limiters.Cached.Allow() {
				setLimitHeaders(w, limiter.GetCachedLimit(), limiters.GetCachedTokens(), "cached")
				log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
				ctx := context.WithValue(r.Context(), cacheOnlyKey, true)
				ctx = context.WithValue(ctx, rateLimitTypeKey, "cached")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			stats.Get().RecordRateLimitExceeded()
			log.Warnf("%s IP %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
			setLimitHeaders(w, limiter.GetCachedLimit(), 0, "exceeded")
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, limit, remaining int, tier string) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Type", tier)
}

// clientIP strips the port from RemoteAddr so one client maps to one limiter
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
