package kugou

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	lyricsSearchURL   = "https://krcs.kugou.com/search"
	lyricsDownloadURL = "https://krcs.kugou.com/download"
	songSearchURL     = "http://msearchcdn.kugou.com/api/v3/search/song"

	songPageSize = 10
)

// endpoints groups the three Kugou URLs so tests can point them at one server
type endpoints struct {
	songSearch     string
	lyricsSearch   string
	lyricsDownload string
}

func newEndpoints(baseURL string) endpoints {
	if baseURL == "" {
		return endpoints{songSearchURL, lyricsSearchURL, lyricsDownloadURL}
	}
	base := strings.TrimRight(baseURL, "/")
	return endpoints{
		songSearch:     base + "/api/v3/search/song",
		lyricsSearch:   base + "/search",
		lyricsDownload: base + "/download",
	}
}

type client struct {
	http *providers.HTTPClient
	urls endpoints
}

func keyword(q providers.Query) string {
	if q.Artist == "" {
		return q.Title
	}
	return q.Title + " " + q.Artist
}

// searchSongs looks up catalog entries; the hash is required to list lyrics
func (c *client) searchSongs(ctx context.Context, q providers.Query) ([]songInfo, error) {
	params := url.Values{}
	params.Set("keyword", keyword(q))
	params.Set("pagesize", strconv.Itoa(songPageSize))
	params.Set("page", "1")
	params.Set("plat", "0")
	params.Set("version", "9108")

	body, err := c.http.Get(ctx, c.urls.songSearch+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp songSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse song search", err)
	}
	if resp.Status != 1 {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonHTTPStatus,
			fmt.Sprintf("song search error: status %d, errcode %d", resp.Status, resp.ErrCode), nil)
	}
	return resp.Data.Info, nil
}

// searchLyrics lists the lyrics files attached to a song hash
func (c *client) searchLyrics(ctx context.Context, q providers.Query, hash string) ([]lyricsCandidate, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("man", "yes")
	params.Set("client", "mobi")
	params.Set("keyword", keyword(q))
	params.Set("hash", hash)

	log.Debugf("%s %s Searching lyrics: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), keyword(q))

	body, err := c.http.Get(ctx, c.urls.lyricsSearch+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp lyricsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse lyrics search", err)
	}
	if resp.Status != 200 {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonHTTPStatus,
			fmt.Sprintf("lyrics search error: %s (code: %d)", resp.ErrMsg, resp.ErrCode), nil)
	}
	return resp.Candidates, nil
}

// download fetches and decodes one LRC file
func (c *client) download(ctx context.Context, id, accessKey string) (string, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("client", "pc")
	params.Set("id", id)
	params.Set("accesskey", accessKey)
	params.Set("fmt", "lrc")
	params.Set("charset", "utf8")

	body, err := c.http.Get(ctx, c.urls.lyricsDownload+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	var resp downloadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to parse download", err)
	}
	if resp.Status != 200 {
		return "", providers.NewProviderError(ProviderName, providers.ReasonHTTPStatus,
			fmt.Sprintf("download error: %s (code: %d)", resp.Info, resp.ErrorCode), nil)
	}
	if resp.Content == "" {
		return "", providers.NewProviderError(ProviderName, providers.ReasonEmpty, "lyrics content is empty", nil)
	}

	lrc, err := decodeContent(resp.Content)
	if err != nil {
		return "", providers.NewProviderError(ProviderName, providers.ReasonParse, "failed to decode lyrics content", err)
	}
	return lrc, nil
}

// nameScore rewards exact then partial (case-insensitive) name agreement
func nameScore(got, want string, exact, partial int) int {
	got, want = strings.ToLower(got), strings.ToLower(want)
	switch {
	case want == "" || got == "":
		return 0
	case got == want:
		return exact
	case strings.Contains(got, want) || strings.Contains(want, got):
		return partial
	}
	return 0
}

// bestSong picks the catalog entry closest to the query.
// The returned score is normalized to 0.0-1.0.
func bestSong(songs []songInfo, q providers.Query) (*songInfo, float64) {
	const maxScore = 30 + 25 + 3

	var best *songInfo
	bestScore := -1
	for i := range songs {
		s := &songs[i]
		score := nameScore(s.SongName, q.Title, 30, 15) + nameScore(s.SingerName, q.Artist, 25, 10)
		if s.SQHash != "" {
			score += 2
		}
		if s.Hash320 != "" {
			score++
		}
		if score > bestScore {
			bestScore, best = score, s
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, clamp(float64(bestScore) / maxScore)
}

// bestLyrics picks the lyrics file to download, preferring synced and official uploads.
// The returned score is normalized to 0.0-1.0.
func bestLyrics(candidates []lyricsCandidate, q providers.Query) (*lyricsCandidate, float64) {
	const maxScore = 60 + 20 + 20 + 20 + 5

	var best *lyricsCandidate
	bestScore := -1
	for i := range candidates {
		c := &candidates[i]
		score := c.Score + nameScore(c.Song, q.Title, 20, 10) + nameScore(c.Singer, q.Artist, 20, 10)
		if c.KRCType == 1 {
			score += 20
		}
		if strings.Contains(c.ProductFrom, "官方") {
			score += 5
		}
		if score > bestScore {
			bestScore, best = score, c
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, clamp(float64(bestScore) / maxScore)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
