package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestQuery_Key(t *testing.T) {
	a := Query{Artist: "  Taylor   Swift ", Title: "Love Story"}
	b := Query{Artist: "taylor swift", Title: "LOVE STORY"}

	if a.Key() != b.Key() {
		t.Errorf("Expected equal keys, got %q and %q", a.Key(), b.Key())
	}

	n := a.Normalized()
	if n.Artist != "taylor swift" || n.Title != "love story" {
		t.Errorf("Unexpected normalized query %+v", n)
	}
}

func TestQuery_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		q        Query
		expected bool
	}{
		{"both set", Query{Artist: "a", Title: "b"}, false},
		{"title only", Query{Title: "b"}, false},
		{"blank title", Query{Artist: "a", Title: "   "}, true},
		{"zero value", Query{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.IsEmpty(); got != tt.expected {
				t.Errorf("IsEmpty() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCandidate_MetadataCopy(t *testing.T) {
	c := Candidate{Metadata: map[string]string{"language": "en"}}
	m := c.MetadataCopy()
	m["language"] = "ko"

	if c.Metadata["language"] != "en" {
		t.Error("MetadataCopy must not alias the candidate's map")
	}

	empty := Candidate{}.MetadataCopy()
	if empty == nil {
		t.Error("MetadataCopy should return a usable map for nil metadata")
	}
}

func TestVerification_Verified(t *testing.T) {
	tests := []struct {
		name     string
		v        Verification
		expected bool
	}{
		{"confirmed", Verification{KnownSong: true, LyricsMatch: true, Confidence: 80}, true},
		{"at threshold", Verification{KnownSong: true, LyricsMatch: true, Confidence: 50}, false},
		{"unknown song", Verification{LyricsMatch: true, Confidence: 90}, false},
		{"mismatch", Verification{KnownSong: true, Confidence: 90}, false},
		{"ai text", Verification{KnownSong: true, LyricsMatch: true, IsAIText: true, Confidence: 90}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Verified(50); got != tt.expected {
				t.Errorf("Verified(50) = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsRTLLanguage(t *testing.T) {
	tests := []struct {
		langCode string
		expected bool
	}{
		{"ar", true},
		{"he", true},
		{"fa", true},
		{"en", false},
		{"ko", false},
		{"", false},
		{"AR", false},
	}

	for _, tt := range tests {
		t.Run(tt.langCode, func(t *testing.T) {
			if got := IsRTLLanguage(tt.langCode); got != tt.expected {
				t.Errorf("IsRTLLanguage(%q) = %v, expected %v", tt.langCode, got, tt.expected)
			}
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name:     "Without wrapped error",
			err:      NewProviderError("lrclib", ReasonNotFound, "no lyrics", nil),
			expected: "lrclib: no lyrics",
		},
		{
			name:     "With wrapped error",
			err:      NewProviderError("kugou", ReasonNetwork, "request failed", errors.New("connection reset")),
			expected: "kugou: request failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Error() = %q, expected %q", tt.err.Error(), tt.expected)
			}
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewProviderError("ovh", ReasonNetwork, "outer", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("fanout: %w", NewProviderError("genius", ReasonTooShort, "short", nil))

	if ReasonOf(wrapped) != ReasonTooShort {
		t.Errorf("Expected too_short, got %s", ReasonOf(wrapped))
	}
	if ReasonOf(errors.New("plain")) != ReasonNetwork {
		t.Errorf("Expected network for foreign errors, got %s", ReasonOf(errors.New("plain")))
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		reason   Reason
		expected bool
	}{
		{ReasonNotFound, true},
		{ReasonEmpty, true},
		{ReasonTooShort, true},
		{ReasonNetwork, false},
		{ReasonHTTPStatus, false},
		{ReasonTimeout, false},
		{ReasonRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := NewProviderError("p", tt.reason, "msg", nil)
			if got := IsNotFound(err); got != tt.expected {
				t.Errorf("IsNotFound(%s) = %v, expected %v", tt.reason, got, tt.expected)
			}
		})
	}
}
