package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"lyrics-resolver-go/cache"
	"lyrics-resolver-go/circuitbreaker"
	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/middleware"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/resolver"

	log "github.com/sirupsen/logrus"
)

// maxVerifyBody bounds the /verify request body
const maxVerifyBody = 256 << 10

func (a *app) resolveLyrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := queryFromRequest(r)
	opts := resolver.ResolveOptions{
		Refresh:   boolParam(r, "refresh"),
		Verify:    boolParam(r, "verify"),
		CacheOnly: middleware.CacheOnly(r.Context()),
	}
	if opts.CacheOnly && opts.Refresh {
		opts.Refresh = false
	}

	res, err := a.engine.Resolve(r.Context(), q, opts)
	switch {
	case errors.Is(err, resolver.ErrInvalidQuery):
		Respond(w, r).Error(http.StatusUnprocessableEntity, "Song title not provided (use ?title=...&artist=...)")
		return

	case errors.Is(err, resolver.ErrNotFound):
		Respond(w, r).Error(http.StatusNotFound, "Lyrics not available for this track")
		return

	case errors.Is(err, resolver.ErrCacheOnlyMiss):
		log.Warnf("%s Cache-only mode but nothing cached for %s", logcolors.LogRateLimit, q)
		w.Header().Set("Retry-After", "60")
		Respond(w, r).SetCacheStatus("MISS").Status(http.StatusTooManyRequests, map[string]string{
			"error":   "Rate limit exceeded. This request requires cached data, but no cache is available for this query.",
			"message": "Please try again later or reduce your request rate.",
		})
		return

	case err != nil:
		log.Errorf("%s Resolution failed for %s: %v", logcolors.LogResolve, q, err)
		Respond(w, r).Error(http.StatusInternalServerError, "Resolution failed")
		return
	}

	// A result stamped before this request started came from the cache
	status := "MISS"
	if res.ResolvedAt.Before(start) {
		status = "HIT"
	}

	Respond(w, r).SetCacheStatus(status).SetSource(res.Source).JSON(ResolveResponse{
		ResolutionResult: *res,
		IsRTLLanguage:    providers.IsRTLLanguage(res.Metadata["language"]),
	})
}

func (a *app) verifyLyrics(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody)).Decode(&req); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Lyrics) == "" {
		Respond(w, r).Error(http.StatusUnprocessableEntity, "Both 'title' and 'lyrics' are required")
		return
	}

	out := a.engine.Verify(r.Context(), req.Artist, req.Title, req.Lyrics)
	Respond(w, r).JSON(VerifyResponse{
		Verification: out,
		Verified:     out.Verified(a.chain.Threshold()),
		Threshold:    a.chain.Threshold(),
		Verifiers:    a.chain.Names(),
	})
}

func (a *app) getHealthStatus(w http.ResponseWriter, r *http.Request) {
	configured, unconfigured := splitProviders(a.registry)
	health := HealthResponse{
		Status:                "ok",
		Providers:             configured,
		ProvidersUnconfigured: unconfigured,
	}

	snapshot := a.breakers.Snapshot()
	for name, st := range snapshot {
		if st.State == circuitbreaker.StateOpen.String() {
			health.OpenCircuits = append(health.OpenCircuits, name)
		}
	}
	if len(health.OpenCircuits) > 0 {
		health.Status = "degraded"
		sort.Strings(health.OpenCircuits)
	}

	if len(configured) == 0 {
		health.Status = "unhealthy"
		health.Error = "no providers configured"
	}

	// Operators get the full breaker view
	if a.isAdmin(r) {
		health.CircuitBreakers = snapshot
	}

	Respond(w, r).JSON(health)
}

func (a *app) getStats(w http.ResponseWriter, r *http.Request) {
	layers := map[string]interface{}{
		"fast_entries": a.layer.FastLen(),
		"durable":      a.durable != nil,
	}
	if a.durable != nil {
		layers["durable_keys"], layers["durable_size_kb"] = a.durable.Stats()
	}

	snapshot := a.stats.Snapshot()
	snapshot["cache_layers"] = layers
	Respond(w, r).JSON(snapshot)
}

func (a *app) getCacheSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		a.invalidateEntry(w, r)
		return
	}

	resp := CacheSummaryResponse{
		FastEntries: a.layer.FastLen(),
		Performance: CachePerformance{
			FastHits:     a.stats.FastCacheHits.Load(),
			DurableHits:  a.stats.DurableCacheHits.Load(),
			Misses:       a.stats.CacheMisses.Load(),
			NegativeHits: a.stats.NegativeCacheHits.Load(),
			HitRate:      a.stats.CacheHitRate(),
		},
	}
	if a.durable != nil {
		resp.DurableKeys, resp.SizeInKB = a.durable.Stats()
		resp.SizeInMB = float64(resp.SizeInKB) / 1024
		if keys, err := a.durable.Keys(cache.NegativePrefix); err == nil {
			resp.NegativeKeys = len(keys)
		}
	}
	Respond(w, r).JSON(resp)
}

// invalidateEntry forgets one query in both tiers, including its "no lyrics" marker
func (a *app) invalidateEntry(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)
	if q.IsEmpty() {
		Respond(w, r).Error(http.StatusUnprocessableEntity, "Song title not provided")
		return
	}
	a.layer.Invalidate(q)
	log.Infof("%s Invalidated %s", logcolors.LogCache, q)
	Respond(w, r).JSON(map[string]string{
		"message": "Cache entry invalidated",
		"key":     q.Key(),
	})
}

func (a *app) backupCache(w http.ResponseWriter, r *http.Request) {
	if !a.requireDurable(w, r) {
		return
	}
	backupPath, err := a.durable.Backup()
	if err != nil {
		log.Errorf("%s Failed to backup cache: %v", logcolors.LogCacheBackup, err)
		notifier.PublishCacheBackupFailed(err)
		Respond(w, r).Error(http.StatusInternalServerError, fmt.Sprintf("Failed to backup cache: %v", err))
		return
	}

	log.Infof("%s Cache backed up to %s", logcolors.LogCacheBackup, backupPath)
	Respond(w, r).JSON(map[string]string{
		"message":     "Cache backed up successfully",
		"backup_path": backupPath,
	})
}

func (a *app) listBackups(w http.ResponseWriter, r *http.Request) {
	if !a.requireDurable(w, r) {
		return
	}
	backups, err := a.durable.ListBackups()
	if err != nil {
		log.Errorf("%s Failed to list backups: %v", logcolors.LogCacheBackups, err)
		Respond(w, r).Error(http.StatusInternalServerError, fmt.Sprintf("Failed to list backups: %v", err))
		return
	}
	if backups == nil {
		backups = []cache.BackupInfo{}
	}
	Respond(w, r).JSON(map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func (a *app) restoreCache(w http.ResponseWriter, r *http.Request) {
	if !a.requireDurable(w, r) {
		return
	}
	name := r.URL.Query().Get("backup")
	if name == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Missing 'backup' query parameter. Use /cache/backups to list available backups.")
		return
	}

	if err := a.durable.RestoreFromBackup(name); err != nil {
		log.Errorf("%s Failed to restore from backup %s: %v", logcolors.LogCacheBackups, name, err)
		Respond(w, r).Error(http.StatusInternalServerError, fmt.Sprintf("Failed to restore from backup: %v", err))
		return
	}
	// The fast tier may hold entries the restored file no longer has
	a.layer.ClearFast()

	numKeys, sizeKB := a.durable.Stats()
	log.Infof("%s Cache restored from backup: %s", logcolors.LogCacheBackups, name)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": name,
		"keys_restored": numKeys,
		"size_kb":       sizeKB,
	})
}

func (a *app) clearCache(w http.ResponseWriter, r *http.Request) {
	if !a.requireDurable(w, r) {
		return
	}
	backupPath, err := a.durable.BackupAndClear()
	if err != nil {
		log.Errorf("%s Failed to backup and clear cache: %v", logcolors.LogCacheClear, err)
		notifier.PublishCacheBackupFailed(err)
		Respond(w, r).Error(http.StatusInternalServerError, fmt.Sprintf("Failed to clear cache: %v", err))
		return
	}
	a.layer.ClearFast()

	log.Infof("%s Cache cleared, backup at %s", logcolors.LogCacheClear, backupPath)
	notifier.PublishCacheCleared(backupPath)
	Respond(w, r).JSON(map[string]string{
		"message":     "Cache backed up and cleared successfully",
		"backup_path": backupPath,
	})
}

func (a *app) getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"breakers": a.breakers.Snapshot(),
		"config": map[string]interface{}{
			"threshold":    a.conf.Resolver.CircuitBreakerThreshold,
			"cooldown_sec": a.conf.Resolver.CircuitBreakerCooldownSecs,
		},
	})
}

func (a *app) resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("provider")
	if name == "" {
		a.breakers.ResetAll()
		Respond(w, r).JSON(map[string]string{"message": "All circuit breakers reset to CLOSED state"})
		return
	}

	if err := a.breakers.Reset(name); err != nil {
		Respond(w, r).Error(http.StatusNotFound, err.Error())
		return
	}
	Respond(w, r).JSON(map[string]string{"message": fmt.Sprintf("Circuit breaker for %s reset to CLOSED state", name)})
}

func (a *app) helpHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		Respond(w, r).Error(http.StatusNotFound, "Not found")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /resolve to get the lyrics of a song. Example: /resolve?artist=Ed%20Sheeran&title=Shape%20of%20You",
		"endpoints": map[string]string{
			"GET /resolve":                "Resolve lyrics (?artist, ?title, optional ?refresh, ?verify)",
			"POST /verify":                "Verify a transcript ({artist, title, lyrics})",
			"GET /health":                 "Service health",
			"GET /stats":                  "Counters (admin)",
			"GET /cache":                  "Cache summary (admin)",
			"DELETE /cache":               "Invalidate one query (admin)",
			"POST /cache/backup":          "Backup durable cache (admin)",
			"GET /cache/backups":          "List backups (admin)",
			"POST /cache/restore":         "Restore a backup (admin, ?backup=)",
			"POST /cache/clear":           "Backup then clear the cache (admin)",
			"GET /circuit-breaker":        "Breaker status (admin)",
			"POST /circuit-breaker/reset": "Reset breakers (admin, optional ?provider=)",
		},
	})
}

func (a *app) requireDurable(w http.ResponseWriter, r *http.Request) bool {
	if a.durable == nil {
		Respond(w, r).Error(http.StatusServiceUnavailable, "Durable cache is disabled")
		return false
	}
	return true
}

func (a *app) isAdmin(r *http.Request) bool {
	token := a.conf.Server.AdminToken
	provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token != "" && provided == token
}
