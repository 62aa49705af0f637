package main

import (
	"net/http/httptest"
	"testing"
)

func TestQueryFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantArtist string
		wantTitle  string
	}{
		{"long names", "/resolve?artist=Adele&title=Hello", "Adele", "Hello"},
		{"short aliases", "/resolve?a=Adele&s=Hello", "Adele", "Hello"},
		{"song alias", "/resolve?artistName=Adele&song=Hello", "Adele", "Hello"},
		{"long name wins", "/resolve?title=Hello&s=Other", "", "Hello"},
		{"blank skipped", "/resolve?title=%20%20&s=Hello", "", "Hello"},
		{"trimmed", "/resolve?artist=%20Adele%20&title=Hello", "Adele", "Hello"},
		{"nothing", "/resolve", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryFromRequest(httptest.NewRequest("GET", tt.url, nil))
			if q.Artist != tt.wantArtist || q.Title != tt.wantTitle {
				t.Errorf("got %q / %q, want %q / %q", q.Artist, q.Title, tt.wantArtist, tt.wantTitle)
			}
		})
	}
}

func TestBoolParam(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"/resolve", false},
		{"/resolve?refresh", true},
		{"/resolve?refresh=", true},
		{"/resolve?refresh=true", true},
		{"/resolve?refresh=1", true},
		{"/resolve?refresh=false", false},
		{"/resolve?refresh=maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := boolParam(httptest.NewRequest("GET", tt.url, nil), "refresh"); got != tt.want {
				t.Errorf("boolParam(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
