package main

import (
	"lyrics-resolver-go/circuitbreaker"
	"lyrics-resolver-go/services/providers"
)

// ResolveResponse is the /resolve payload
type ResolveResponse struct {
	providers.ResolutionResult
	IsRTLLanguage bool `json:"isRtlLanguage"`
}

// VerifyRequest is the /verify request body
type VerifyRequest struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Lyrics string `json:"lyrics"`
}

// VerifyResponse is the /verify payload
type VerifyResponse struct {
	providers.Verification
	Verified  bool     `json:"verified"`
	Threshold int      `json:"threshold"`
	Verifiers []string `json:"verifiers"`
}

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	FastHits     int64   `json:"fast_hits"`
	DurableHits  int64   `json:"durable_hits"`
	Misses       int64   `json:"misses"`
	NegativeHits int64   `json:"negative_hits"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// CacheSummaryResponse is the response format for /cache
type CacheSummaryResponse struct {
	FastEntries  int              `json:"fast_entries"`
	DurableKeys  int              `json:"durable_keys"`
	NegativeKeys int              `json:"negative_keys"`
	SizeInKB     int              `json:"size_kb"`
	SizeInMB     float64          `json:"size_mb"`
	Performance  CachePerformance `json:"performance"`
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status                string                           `json:"status"`
	Providers             []string                         `json:"providers"`
	ProvidersUnconfigured []string                         `json:"providers_unconfigured,omitempty"`
	OpenCircuits          []string                         `json:"open_circuits,omitempty"`
	CircuitBreakers       map[string]circuitbreaker.Status `json:"circuit_breakers,omitempty"`
	Error                 string                           `json:"error,omitempty"`
}
