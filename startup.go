package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lyrics-resolver-go/cache"
	"lyrics-resolver-go/circuitbreaker"
	"lyrics-resolver-go/config"
	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/middleware"
	"lyrics-resolver-go/services/fanout"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/providers/gemini"
	"lyrics-resolver-go/services/providers/genius"
	"lyrics-resolver-go/services/providers/kugou"
	"lyrics-resolver-go/services/providers/lrclib"
	"lyrics-resolver-go/services/providers/ovh"
	"lyrics-resolver-go/services/resolver"
	"lyrics-resolver-go/services/selector"
	"lyrics-resolver-go/services/verify"
	"lyrics-resolver-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	statsSaveInterval    = 5 * time.Minute
	cachePurgeInterval   = time.Hour
	limiterCleanupPeriod = 10 * time.Minute
	limiterMaxIdle       = 30 * time.Minute
)

// app holds every wired component of the service
type app struct {
	conf       config.Config
	registry   *providers.Registry
	breakers   *circuitbreaker.Group
	durable    *cache.DurableStore
	layer      *cache.Layer
	chain      *verify.Chain
	engine     *resolver.Engine
	stats      *stats.Stats
	statsStore *stats.Store
	limiter    *middleware.IPRateLimiter
}

// appOptions let tests replace the provider set and skip persistence
type appOptions struct {
	Providers []providers.Provider
	Verifiers []verify.Verifier

	// Ephemeral keeps everything in memory (no bbolt files)
	Ephemeral bool
}

func newApp(c config.Config, opts appOptions) (*app, error) {
	a := &app{conf: c, stats: stats.Get()}

	a.registry = providers.NewRegistry()
	ps := opts.Providers
	if ps == nil {
		ps = buildProviders(c)
	}
	for _, p := range ps {
		a.registry.Register(p)
	}
	logProviderStatus(a.registry)

	a.breakers = circuitbreaker.NewGroup(circuitbreaker.Config{
		Threshold: c.Resolver.CircuitBreakerThreshold,
		Cooldown:  time.Duration(c.Resolver.CircuitBreakerCooldownSecs) * time.Second,
	})

	var durable cache.Durable
	if !opts.Ephemeral {
		store, err := cache.NewDurableStore(cache.DurableOptions{
			Path:        c.Cache.DBPath,
			BackupPath:  c.Cache.BackupPath,
			Compression: c.FeatureFlags.CacheCompression,
		})
		if err != nil {
			notifier.PublishServerStartupFailed("durable_cache", err)
			return nil, fmt.Errorf("failed to open durable cache: %w", err)
		}
		a.durable = store
		durable = store

		statsStore, err := stats.NewStore(c.Cache.StatsDBPath, a.stats)
		if err != nil {
			log.Warnf("%s Stats persistence disabled: %v", logcolors.LogStats, err)
		} else {
			if err := statsStore.Load(); err != nil {
				log.Warnf("%s Failed to load persisted stats: %v", logcolors.LogStats, err)
			}
			a.statsStore = statsStore
		}
	}

	a.layer = cache.NewLayer(cache.LayerOptions{
		FastCapacity: c.Cache.FastCapacity,
		FastTTL:      c.FastCacheTTL(),
		DurableTTL:   c.DurableCacheTTL(),
		NegativeTTL:  c.NegativeCacheTTL(),
		Durable:      durable,
		Stats:        a.stats,
	})

	tiers, err := c.LoadPriorityTiers()
	if err != nil {
		log.Warnf("%s %v, using built-in priority tiers", logcolors.LogConfig, err)
	}

	verifiers := opts.Verifiers
	if verifiers == nil {
		verifiers = buildVerifiers(c, a.registry)
	}
	a.chain = verify.NewChain(c.Resolver.VerifyConfidenceThreshold, verifiers...)

	a.engine = resolver.New(resolver.Options{
		Fanout: fanout.New(a.registry.Configured(), fanout.Options{
			DefaultTimeout: c.ProviderTimeout(),
			Breakers:       a.breakers,
			Stats:          a.stats,
		}),
		Selector: selector.New(selector.Options{
			GoodEnough:      c.Resolver.GoodEnoughScore,
			SignificanceGap: c.Resolver.SignificanceGap,
			Tiers:           providers.NewPriorityTable(tiers),
		}),
		Cache:   a.layer,
		Chain:   a.chain,
		Timeout: c.ResolveTimeout(),
		Stats:   a.stats,
	})

	a.limiter = middleware.NewIPRateLimiter(
		rate.Limit(c.Server.RateLimitPerSecond), c.Server.RateLimitBurstLimit,
		rate.Limit(c.Server.RateLimitPerSecond*5), c.Server.RateLimitBurstLimit*5,
	)

	return a, nil
}

// buildProviders creates the adapters named in ENABLED_PROVIDERS, in that order
func buildProviders(c config.Config) []providers.Provider {
	base := providers.Settings{
		Timeout:   c.ProviderTimeout(),
		MinLength: c.Resolver.MinLyricsLength,
	}

	var ps []providers.Provider
	for _, name := range c.EnabledProviders() {
		s := base
		switch name {
		case lrclib.ProviderName:
			ps = append(ps, lrclib.NewProvider(s))
		case kugou.ProviderName:
			ps = append(ps, kugou.NewProvider(s))
		case ovh.ProviderName:
			ps = append(ps, ovh.NewProvider(s))
		case genius.ProviderName:
			s.Credential = c.Providers.GeniusAccessToken
			ps = append(ps, genius.NewProvider(s))
		case gemini.ProviderName:
			s.Credential = c.Providers.GeminiAPIKey
			s.Timeout = c.GenerativeTimeout()
			ps = append(ps, gemini.NewProvider(s, c.Providers.GeminiModel))
		default:
			log.Warnf("%s Unknown provider %q in ENABLED_PROVIDERS, ignoring", logcolors.LogConfig, name)
		}
	}
	return ps
}

// buildVerifiers orders verifiers cheapest first: the AI-text heuristic, then
// overlap against the curated database, then the generative model
func buildVerifiers(c config.Config, registry *providers.Registry) []verify.Verifier {
	verifiers := []verify.Verifier{verify.AITextVerifier{}}

	if ref, err := registry.Get(lrclib.ProviderName); err == nil && ref.Configured() {
		verifiers = append(verifiers, verify.NewReferenceVerifier(ref))
	}
	if c.Providers.GeminiAPIKey != "" {
		verifiers = append(verifiers, verify.NewGeminiVerifier(gemini.NewClient(c.Providers.GeminiAPIKey, c.Providers.GeminiModel)))
	}
	return verifiers
}

func logProviderStatus(registry *providers.Registry) {
	configured, unconfigured := splitProviders(registry)
	if len(configured) == 0 {
		log.Warnf("%s No providers configured, every resolution will be not found", logcolors.LogConfig)
	}
	for _, name := range configured {
		log.Infof("%s %s enabled", logcolors.LogConfig, logcolors.Provider(name))
	}
	for _, name := range unconfigured {
		log.Warnf("%s %s not configured (missing credential), skipped", logcolors.LogConfig, logcolors.Provider(name))
	}
}

func splitProviders(registry *providers.Registry) (configured, unconfigured []string) {
	for name, ok := range registry.Status() {
		if ok {
			configured = append(configured, name)
		} else {
			unconfigured = append(unconfigured, name)
		}
	}
	sort.Strings(configured)
	sort.Strings(unconfigured)
	return configured, unconfigured
}

// startAlerts routes bus events to the configured notifiers
func startAlerts(c config.Config) {
	notifiers := notifier.FromConfig(c)
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts are logged only", logcolors.LogNotifier)
		return
	}
	notifier.NewAlertHandler(notifier.AlertConfig{Notifiers: notifiers}).Start(notifier.GetEventBus())
}

// startBackground launches the periodic jobs of a long-running server
func (a *app) startBackground(ctx context.Context) {
	if a.statsStore != nil {
		a.statsStore.StartAutoSave(statsSaveInterval)
	}
	if a.durable != nil {
		go a.purgeExpired(ctx)
	}
	a.limiter.StartCleanup(ctx, limiterCleanupPeriod, limiterMaxIdle)
}

// purgeExpired drops expired durable entries every cachePurgeInterval
func (a *app) purgeExpired(ctx context.Context) {
	log.Infof("%s Starting durable cache purge loop (every %v)", logcolors.LogCacheDurable, cachePurgeInterval)
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.durable.Purge()
			if err != nil {
				log.Warnf("%s Purge failed: %v", logcolors.LogCacheDurable, err)
				continue
			}
			if n > 0 {
				log.Infof("%s Purged %d expired entries", logcolors.LogCacheDurable, n)
			}
		}
	}
}

func (a *app) Close() {
	if a.statsStore != nil {
		if err := a.statsStore.Close(); err != nil {
			log.Warnf("%s Failed to close stats store: %v", logcolors.LogStats, err)
		}
	}
	if a.durable != nil {
		if err := a.durable.Close(); err != nil {
			log.Warnf("%s Failed to close durable cache: %v", logcolors.LogCacheDurable, err)
		}
	}
}
