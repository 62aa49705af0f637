package ovh

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the lyrics.ovh provider
	ProviderName = "ovh"

	defaultBaseURL = "https://api.lyrics.ovh"
	defaultTimeout = 8 * time.Second

	confidence = 0.6

	// lyrics.ovh prefixes some transcripts with a French banner line
	bannerPrefix = "paroles de la chanson"
)

type response struct {
	Lyrics string `json:"lyrics"`
	Error  string `json:"error"`
}

// Provider fetches plain lyrics from the lyrics.ovh aggregator
type Provider struct {
	settings providers.Settings
	client   *providers.HTTPClient
}

// NewProvider creates a new lyrics.ovh provider instance
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

func (p *Provider) Configured() bool {
	return true
}

func (p *Provider) Timeout() time.Duration {
	return p.settings.Timeout
}

// Fetch looks the song up by artist and title path segments
func (p *Provider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	if q.IsEmpty() || strings.TrimSpace(q.Artist) == "" {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "artist and title are required", nil)
	}

	log.Infof("%s %s Searching: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), q)

	endpoint := p.settings.BaseURL + "/v1/" + url.PathEscape(q.Artist) + "/" + url.PathEscape(q.Title)
	body, err := p.client.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse response", err)
	}
	if resp.Error != "" {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, resp.Error, nil)
	}

	text := providers.CleanLyrics(stripBanner(resp.Lyrics))
	if err := providers.CheckViable(ProviderName, text, p.settings.MinLength); err != nil {
		return nil, err
	}

	log.Infof("%s %s Found: %s (%d chars)", logcolors.LogSuccess, logcolors.Provider(ProviderName), q, len(text))

	return &providers.Candidate{
		Lyrics:     text,
		Source:     ProviderName,
		Confidence: confidence,
		Metadata:   map[string]string{},
	}, nil
}

func stripBanner(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	first, rest, found := strings.Cut(text, "\n")
	if found && strings.HasPrefix(strings.ToLower(strings.TrimSpace(first)), bannerPrefix) {
		return rest
	}
	return text
}
