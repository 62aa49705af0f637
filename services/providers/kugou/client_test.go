package kugou

import (
	"testing"

	"lyrics-resolver-go/services/providers"
)

func TestNameScore(t *testing.T) {
	tests := []struct {
		got, want string
		expected  int
	}{
		{"Shape of You", "shape of you", 30},
		{"Shape of You (Remix)", "Shape of You", 15},
		{"Perfect", "Shape of You", 0},
		{"", "Shape of You", 0},
		{"Anything", "", 0},
	}

	for _, tt := range tests {
		if got := nameScore(tt.got, tt.want, 30, 15); got != tt.expected {
			t.Errorf("nameScore(%q, %q) = %d, want %d", tt.got, tt.want, got, tt.expected)
		}
	}
}

func TestBestSong(t *testing.T) {
	q := providers.Query{Artist: "Ed Sheeran", Title: "Shape of You"}

	t.Run("exact match wins", func(t *testing.T) {
		songs := []songInfo{
			{SongName: "Perfect", SingerName: "Ed Sheeran", Hash: "a"},
			{SongName: "Shape of You", SingerName: "Ed Sheeran", Hash: "b"},
		}
		best, score := bestSong(songs, q)
		if best == nil || best.Hash != "b" {
			t.Fatalf("Expected hash b, got %+v", best)
		}
		if score <= 0.9 || score > 1 {
			t.Errorf("Expected high normalized score, got %f", score)
		}
	})

	t.Run("quality breaks ties", func(t *testing.T) {
		songs := []songInfo{
			{SongName: "Shape of You", SingerName: "Ed Sheeran", Hash: "plain"},
			{SongName: "Shape of You", SingerName: "Ed Sheeran", Hash: "hq", SQHash: "x"},
		}
		best, _ := bestSong(songs, q)
		if best.Hash != "hq" {
			t.Errorf("Expected the lossless entry, got %s", best.Hash)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		best, score := bestSong(nil, q)
		if best != nil || score != 0 {
			t.Errorf("Expected nil and 0, got %+v %f", best, score)
		}
	})
}

func TestBestLyrics(t *testing.T) {
	q := providers.Query{Artist: "Artist", Title: "Test"}

	t.Run("synced preferred over higher api score", func(t *testing.T) {
		files := []lyricsCandidate{
			{ID: "unsynced", Song: "Test", Singer: "Artist", Score: 60, KRCType: 2},
			{ID: "synced", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1},
		}
		best, _ := bestLyrics(files, q)
		if best.ID != "synced" {
			t.Errorf("Expected synced file, got %s", best.ID)
		}
	})

	t.Run("official preferred", func(t *testing.T) {
		files := []lyricsCandidate{
			{ID: "user", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1, ProductFrom: "user"},
			{ID: "official", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1, ProductFrom: "官方歌词"},
		}
		best, _ := bestLyrics(files, q)
		if best.ID != "official" {
			t.Errorf("Expected official file, got %s", best.ID)
		}
	})

	t.Run("score clamped", func(t *testing.T) {
		files := []lyricsCandidate{{ID: "x", Song: "Test", Singer: "Artist", Score: 500, KRCType: 1}}
		_, score := bestLyrics(files, q)
		if score != 1 {
			t.Errorf("Expected clamped score 1, got %f", score)
		}
	})
}

func TestNewEndpoints(t *testing.T) {
	defaults := newEndpoints("")
	if defaults.songSearch != songSearchURL || defaults.lyricsDownload != lyricsDownloadURL {
		t.Errorf("Unexpected default endpoints %+v", defaults)
	}

	local := newEndpoints("http://127.0.0.1:9999/")
	if local.lyricsSearch != "http://127.0.0.1:9999/search" {
		t.Errorf("Unexpected override endpoint %s", local.lyricsSearch)
	}
}
