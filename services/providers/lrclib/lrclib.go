package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LRCLib provider
	ProviderName = "lrclib"

	defaultBaseURL = "https://lrclib.net"
	defaultTimeout = 8 * time.Second

	exactMatchConfidence  = 0.95
	searchMatchConfidence = 0.8
)

// track is the LRCLib API record shape shared by /api/get and /api/search
type track struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Provider fetches curated, line-synchronized lyrics from LRCLib
type Provider struct {
	settings providers.Settings
	client   *providers.HTTPClient
}

// NewProvider creates a new LRCLib provider instance
func NewProvider(settings providers.Settings) *Provider {
	settings = settings.WithDefaults(defaultTimeout, defaultBaseURL)
	return &Provider{
		settings: settings,
		client:   providers.NewHTTPClient(ProviderName, settings.Timeout, 5, 5),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// Configured is always true, LRCLib needs no credentials
func (p *Provider) Configured() bool {
	return true
}

func (p *Provider) Timeout() time.Duration {
	return p.settings.Timeout
}

// Fetch tries the exact-match endpoint first and falls back to search
func (p *Provider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	if q.IsEmpty() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "title cannot be empty", nil)
	}

	log.Infof("%s %s Searching: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), q)

	confidence := exactMatchConfidence
	t, err := p.get(ctx, q)
	if err != nil {
		if !providers.IsNotFound(err) {
			return nil, err
		}
		confidence = searchMatchConfidence
		t, err = p.search(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return p.toCandidate(t, confidence)
}

func (p *Provider) get(ctx context.Context, q providers.Query) (*track, error) {
	params := url.Values{}
	params.Set("artist_name", q.Artist)
	params.Set("track_name", q.Title)

	body, err := p.client.Get(ctx, p.settings.BaseURL+"/api/get?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var t track
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse response", err)
	}
	return &t, nil
}

func (p *Provider) search(ctx context.Context, q providers.Query) (*track, error) {
	params := url.Values{}
	params.Set("track_name", q.Title)
	if q.Artist != "" {
		params.Set("artist_name", q.Artist)
	}

	body, err := p.client.Get(ctx, p.settings.BaseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var results []track
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse search response", err)
	}

	// Prefer the first synced result, then the first with any lyrics
	var fallback *track
	for i := range results {
		r := &results[i]
		if r.Instrumental {
			continue
		}
		if r.SyncedLyrics != "" {
			return r, nil
		}
		if fallback == nil && r.PlainLyrics != "" {
			fallback = r
		}
	}
	if fallback == nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound,
			fmt.Sprintf("no lyrics found for: %s", q), nil)
	}
	return fallback, nil
}

func (p *Provider) toCandidate(t *track, confidence float64) (*providers.Candidate, error) {
	if t.Instrumental {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "track is instrumental", nil)
	}

	// Plain lyrics keep stanza breaks; synced lyrics are stripped when plain is missing
	text := providers.CleanLyrics(t.PlainLyrics)
	if text == "" && t.SyncedLyrics != "" {
		text = providers.StripTimestamps(t.SyncedLyrics)
	}
	if err := providers.CheckViable(ProviderName, text, p.settings.MinLength); err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"lrclibId": strconv.Itoa(t.ID),
		"artist":   t.ArtistName,
		"title":    t.TrackName,
	}
	if t.AlbumName != "" {
		metadata["album"] = t.AlbumName
	}
	if t.Duration > 0 {
		metadata["durationMs"] = strconv.Itoa(int(t.Duration * 1000))
	}
	if t.SyncedLyrics != "" {
		metadata["synced"] = t.SyncedLyrics
	}

	log.Infof("%s %s Found: %s - %s (%d chars, synced: %v)", logcolors.LogSuccess, logcolors.Provider(ProviderName),
		t.ArtistName, t.TrackName, len(text), t.SyncedLyrics != "")

	return &providers.Candidate{
		Lyrics:        text,
		Source:        ProviderName,
		HasTimestamps: t.SyncedLyrics != "",
		Confidence:    confidence,
		Metadata:      metadata,
	}, nil
}
