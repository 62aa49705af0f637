package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lyrics-resolver-go/logcolors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store handles persistent storage for stats
type Store struct {
	db       *bolt.DB
	dbPath   string
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PersistedStats represents the stats data that gets persisted to disk
type PersistedStats struct {
	// Cumulative counters (these accumulate across restarts)
	TotalRequests     int64 `json:"total_requests"`
	ResolveRequests   int64 `json:"resolve_requests"`
	VerifyRequests    int64 `json:"verify_requests"`
	CacheRequests     int64 `json:"cache_requests"`
	StatsRequests     int64 `json:"stats_requests"`
	HealthRequests    int64 `json:"health_requests"`
	OtherRequests     int64 `json:"other_requests"`
	Resolutions       int64 `json:"resolutions"`
	NotFound          int64 `json:"not_found"`
	Merges            int64 `json:"merges"`
	LowConfidence     int64 `json:"low_confidence"`
	Verified          int64 `json:"verified"`
	Unverified        int64 `json:"unverified"`
	SharedResolutions int64 `json:"shared_resolutions"`
	FastCacheHits     int64 `json:"fast_cache_hits"`
	DurableCacheHits  int64 `json:"durable_cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	NegativeCacheHits int64 `json:"negative_cache_hits"`
	DurableFailures   int64 `json:"durable_failures"`
	RateLimitExceeded int64 `json:"rate_limit_exceeded"`
	Status2xx         int64 `json:"status_2xx"`
	Status4xx         int64 `json:"status_4xx"`
	Status5xx         int64 `json:"status_5xx"`

	// Response time tracking
	TotalResponseTime    int64 `json:"total_response_time"`
	ResponseCount        int64 `json:"response_count"`
	MinResponseTime      int64 `json:"min_response_time"`
	MaxResponseTime      int64 `json:"max_response_time"`
	ResolveResponseTime  int64 `json:"resolve_response_time"`
	ResolveResponseCount int64 `json:"resolve_response_count"`

	Providers map[string]ProviderCounts `json:"providers"`

	// Metadata
	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore creates a stats store with a dedicated BoltDB file backing s.
// A nil s uses the global stats.
func NewStore(dbPath string, s *Stats) (*Store, error) {
	if s == nil {
		s = Get()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{
		db:       db,
		dbPath:   dbPath,
		stats:    s,
		stopChan: make(chan struct{}),
	}, nil
}

// Load reads persisted stats from disk and applies them to the backing stats
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted PersistedStats
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(statsKey))
		if data == nil {
			return nil // No persisted stats yet
		}
		found = true
		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	st := s.stats
	st.TotalRequests.Store(persisted.TotalRequests)
	st.ResolveRequests.Store(persisted.ResolveRequests)
	st.VerifyRequests.Store(persisted.VerifyRequests)
	st.CacheRequests.Store(persisted.CacheRequests)
	st.StatsRequests.Store(persisted.StatsRequests)
	st.HealthRequests.Store(persisted.HealthRequests)
	st.OtherRequests.Store(persisted.OtherRequests)
	st.Resolutions.Store(persisted.Resolutions)
	st.NotFound.Store(persisted.NotFound)
	st.Merges.Store(persisted.Merges)
	st.LowConfidence.Store(persisted.LowConfidence)
	st.Verified.Store(persisted.Verified)
	st.Unverified.Store(persisted.Unverified)
	st.SharedResolutions.Store(persisted.SharedResolutions)
	st.FastCacheHits.Store(persisted.FastCacheHits)
	st.DurableCacheHits.Store(persisted.DurableCacheHits)
	st.CacheMisses.Store(persisted.CacheMisses)
	st.NegativeCacheHits.Store(persisted.NegativeCacheHits)
	st.DurableFailures.Store(persisted.DurableFailures)
	st.RateLimitExceeded.Store(persisted.RateLimitExceeded)
	st.Status2xx.Store(persisted.Status2xx)
	st.Status4xx.Store(persisted.Status4xx)
	st.Status5xx.Store(persisted.Status5xx)
	st.totalResponseTime.Store(persisted.TotalResponseTime)
	st.responseCount.Store(persisted.ResponseCount)
	st.resolveResponseTime.Store(persisted.ResolveResponseTime)
	st.resolveResponseCount.Store(persisted.ResolveResponseCount)

	// Only update min/max if we have valid persisted values
	if persisted.MinResponseTime > 0 && persisted.MinResponseTime < noResponseTime {
		st.minResponseTime.Store(persisted.MinResponseTime)
	}
	if persisted.MaxResponseTime > 0 {
		st.maxResponseTime.Store(persisted.MaxResponseTime)
	}

	for name, counts := range persisted.Providers {
		st.restoreProvider(name, counts)
	}

	// Preserve the original first start time if available
	if !persisted.FirstStarted.IsZero() {
		st.StartTime = persisted.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (total requests: %d, first started: %s)",
		logcolors.LogStats, persisted.TotalRequests, persisted.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save persists current stats to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	persisted := PersistedStats{
		TotalRequests:        st.TotalRequests.Load(),
		ResolveRequests:      st.ResolveRequests.Load(),
		VerifyRequests:       st.VerifyRequests.Load(),
		CacheRequests:        st.CacheRequests.Load(),
		StatsRequests:        st.StatsRequests.Load(),
		HealthRequests:       st.HealthRequests.Load(),
		OtherRequests:        st.OtherRequests.Load(),
		Resolutions:          st.Resolutions.Load(),
		NotFound:             st.NotFound.Load(),
		Merges:               st.Merges.Load(),
		LowConfidence:        st.LowConfidence.Load(),
		Verified:             st.Verified.Load(),
		Unverified:           st.Unverified.Load(),
		SharedResolutions:    st.SharedResolutions.Load(),
		FastCacheHits:        st.FastCacheHits.Load(),
		DurableCacheHits:     st.DurableCacheHits.Load(),
		CacheMisses:          st.CacheMisses.Load(),
		NegativeCacheHits:    st.NegativeCacheHits.Load(),
		DurableFailures:      st.DurableFailures.Load(),
		RateLimitExceeded:    st.RateLimitExceeded.Load(),
		Status2xx:            st.Status2xx.Load(),
		Status4xx:            st.Status4xx.Load(),
		Status5xx:            st.Status5xx.Load(),
		TotalResponseTime:    st.totalResponseTime.Load(),
		ResponseCount:        st.responseCount.Load(),
		MinResponseTime:      st.minResponseTime.Load(),
		MaxResponseTime:      st.maxResponseTime.Load(),
		ResolveResponseTime:  st.resolveResponseTime.Load(),
		ResolveResponseCount: st.resolveResponseCount.Load(),
		Providers:            st.ProviderSnapshot(),
		LastSaved:            time.Now(),
		FirstStarted:         st.StartTime,
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return fmt.Errorf("stats bucket not found")
		}
		return b.Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave begins periodic saving of stats
func (s *Store) StartAutoSave(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close saves stats and closes the database
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()

	if err := s.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}

	return s.db.Close()
}
