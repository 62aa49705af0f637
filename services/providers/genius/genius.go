package genius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the Genius provider
	ProviderName = "genius"

	defaultBaseURL = "https://api.genius.com"
	defaultTimeout = 10 * time.Second

	exactTitleConfidence   = 0.7
	partialTitleConfidence = 0.5
)

// Provider searches the Genius API and scrapes the matched song page
type Provider struct {
	settings providers.Settings
	client   *providers.HTTPClient
}

// NewProvider creates a Genius provider. settings.Credential is the API access token.
func NewProvider(settings providers.Settings) *Provider {
	settings = settings.WithDefaults(defaultTimeout, defaultBaseURL)
	return &Provider{
		settings: settings,
		client:   providers.NewHTTPClient(ProviderName, settings.Timeout, 2, 2),
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// Configured reports whether an access token was supplied
func (p *Provider) Configured() bool {
	return p.settings.Credential != ""
}

func (p *Provider) Timeout() time.Duration {
	return p.settings.Timeout
}

func (p *Provider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	if !p.Configured() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotConfigured, "access token not set", nil)
	}
	if q.IsEmpty() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "title cannot be empty", nil)
	}

	log.Infof("%s %s Searching: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), q)

	hits, err := p.search(ctx, q)
	if err != nil {
		return nil, err
	}
	match, confidence := bestHit(hits, q)
	if match == nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound,
			fmt.Sprintf("no matching song for: %s", q), nil)
	}

	log.Infof("%s %s Found song: %s - %s", logcolors.LogMatch, logcolors.Provider(ProviderName),
		match.PrimaryArtist.Name, match.Title)

	page, err := p.client.Get(ctx, match.URL, nil)
	if err != nil {
		return nil, err
	}
	raw, err := extractLyrics(bytes.NewReader(page))
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse song page", err)
	}

	text := providers.CleanLyrics(raw)
	if err := providers.CheckViable(ProviderName, text, p.settings.MinLength); err != nil {
		return nil, err
	}

	return &providers.Candidate{
		Lyrics:     text,
		Source:     ProviderName,
		Confidence: confidence,
		Metadata: map[string]string{
			"geniusId": strconv.Itoa(match.ID),
			"url":      match.URL,
			"artist":   match.PrimaryArtist.Name,
			"title":    match.Title,
		},
	}, nil
}

func (p *Provider) search(ctx context.Context, q providers.Query) ([]hit, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(q.Title+" "+q.Artist))

	body, err := p.client.Get(ctx, p.settings.BaseURL+"/search?"+params.Encode(), map[string]string{
		"Authorization": "Bearer " + p.settings.Credential,
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse search response", err)
	}
	return resp.Response.Hits, nil
}

// bestHit returns the first song hit whose title and artist agree with the query
func bestHit(hits []hit, q providers.Query) (*song, float64) {
	title := strings.ToLower(strings.TrimSpace(q.Title))
	artist := strings.ToLower(strings.TrimSpace(q.Artist))

	var partial *song
	for i := range hits {
		if hits[i].Type != "song" || hits[i].Result.URL == "" {
			continue
		}
		s := &hits[i].Result
		if s.LyricsState != "" && s.LyricsState != "complete" {
			continue
		}
		gotArtist := strings.ToLower(s.PrimaryArtist.Name)
		if artist != "" && !strings.Contains(gotArtist, artist) && !strings.Contains(artist, gotArtist) {
			continue
		}
		gotTitle := strings.ToLower(s.Title)
		if gotTitle == title {
			return s, exactTitleConfidence
		}
		if partial == nil && strings.Contains(gotTitle, title) {
			partial = s
		}
	}
	if partial != nil {
		return partial, partialTitleConfidence
	}
	return nil, 0
}
