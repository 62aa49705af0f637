package kugou

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the Kugou provider
	ProviderName = "kugou"

	defaultTimeout = 10 * time.Second

	// minSongScore rejects catalog matches that share too little with the query
	minSongScore = 0.4
)

// Provider fetches synced lyrics from the Kugou music catalog
type Provider struct {
	settings providers.Settings
	client   *client
}

// NewProvider creates a new Kugou provider instance
func NewProvider(settings providers.Settings) *Provider {
	settings = settings.WithDefaults(defaultTimeout, "")
	return &Provider{
		settings: settings,
		client: &client{
			http: providers.NewHTTPClient(ProviderName, settings.Timeout, 3, 3),
			urls: newEndpoints(settings.BaseURL),
		},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// Configured is always true, the public endpoints need no key
func (p *Provider) Configured() bool {
	return true
}

func (p *Provider) Timeout() time.Duration {
	return p.settings.Timeout
}

// Fetch resolves the song hash, picks the best lyrics file and downloads it
func (p *Provider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	if q.IsEmpty() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "title cannot be empty", nil)
	}

	log.Infof("%s %s Searching: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), q)

	songs, err := p.client.searchSongs(ctx, q)
	if err != nil {
		return nil, err
	}
	song, songScore := bestSong(songs, q)
	if song == nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound,
			fmt.Sprintf("no songs found for: %s", q), nil)
	}
	if songScore < minSongScore {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound,
			fmt.Sprintf("best match score %.2f below threshold %.2f for: %s", songScore, minSongScore, q), nil)
	}

	log.Infof("%s %s Found song: %s - %s (score: %.2f)",
		logcolors.LogMatch, logcolors.Provider(ProviderName), song.SingerName, song.SongName, songScore)

	files, err := p.client.searchLyrics(ctx, q, song.Hash)
	if err != nil {
		return nil, err
	}
	file, matchScore := bestLyrics(files, q)
	if file == nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound,
			fmt.Sprintf("no lyrics found for: %s", q), nil)
	}

	lrc, err := p.client.download(ctx, file.ID, file.AccessKey)
	if err != nil {
		return nil, err
	}
	if isInstrumental(lrc) {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "track is instrumental", nil)
	}

	synced := trimCredits(lrc)
	text := providers.StripTimestamps(synced)
	if err := providers.CheckViable(ProviderName, text, p.settings.MinLength); err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"artist":   song.SingerName,
		"title":    song.SongName,
		"language": detectLanguage(file.Language, text),
		"synced":   synced,
	}
	if song.AlbumName != "" {
		metadata["album"] = song.AlbumName
	}
	if file.Duration > 0 {
		metadata["durationMs"] = strconv.Itoa(file.Duration)
	}

	log.Infof("%s %s Fetched lyrics for: %s - %s (%d chars, score: %.2f)",
		logcolors.LogSuccess, logcolors.Provider(ProviderName), file.Singer, file.Song, len(text), matchScore)

	return &providers.Candidate{
		Lyrics:        text,
		Source:        ProviderName,
		HasTimestamps: true,
		Confidence:    matchScore,
		Metadata:      metadata,
	}, nil
}
